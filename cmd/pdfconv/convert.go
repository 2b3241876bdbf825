package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/pkg/converter"
)

// Conversion modes.
const (
	modeBasic = "basic"
	modeSmart = "smart"
)

type convertFlags struct {
	mode             string
	format           string
	output           string
	noDedupe         bool
	preserveNewlines bool
	provider         string
	pagesPerChunk    int
	stream           bool
	removeHeader     bool
	noStructured     bool
	extractText      bool
	noAutoChunk      bool
	maxRetries       int
}

// newConvertCmd creates the convert subcommand.
func newConvertCmd() *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert <input.pdf|->",
		Short: "Convert a PDF to CSV",
		Long: `Convert a PDF to CSV.

Use "-" as the input to read the PDF from standard input. Without --output
the result is written to standard output. Outputs starting with s3:// are
uploaded to S3.

Environment Variables:
  PDF_CONVERTER_LLM_PROVIDER   Default provider (openrouter)
  PDF_CONVERTER_CHUNK_PAGES    Pages per chunk (10)
  OPENROUTER_API_KEY, OPENAI_API_KEY, GROQ_API_KEY, GEMINI_API_KEY`,
		Example: `  pdfconv convert report.pdf -o report.csv
  pdfconv convert --mode smart --provider groq --remove-header report.pdf -o report.csv
  cat report.pdf | pdfconv convert --format text -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConvert(ctx, cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", modeBasic, "conversion mode: basic or smart")
	cmd.Flags().StringVar(&f.format, "format", converter.FormatCSV, "basic mode output format: csv or text")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file path (default: stdout)")
	cmd.Flags().BoolVar(&f.noDedupe, "no-dedupe", false, "basic mode: keep text repeated at the top of every page")
	cmd.Flags().BoolVar(&f.preserveNewlines, "preserve-newlines", false, "basic mode: keep line breaks in page text")
	cmd.Flags().StringVar(&f.provider, "provider", "", "smart mode: LLM provider (default from config)")
	cmd.Flags().IntVar(&f.pagesPerChunk, "pages-per-chunk", 0, "smart mode: pages per chunk (default from config)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "smart mode: write each chunk as soon as it is converted")
	cmd.Flags().BoolVar(&f.removeHeader, "remove-header", false, "smart mode: drop the header row of continuation chunks")
	cmd.Flags().BoolVar(&f.noStructured, "no-structured", false, "smart mode: always send a single text message")
	cmd.Flags().BoolVar(&f.extractText, "extract-text", false, "smart mode: send extracted text instead of the PDF when possible")
	cmd.Flags().BoolVar(&f.noAutoChunk, "no-auto-chunk", false, "smart mode: send the whole document in one request")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", -1, "smart mode: provider retries per chunk (default from config)")

	return cmd
}

func runConvert(ctx context.Context, cmd *cobra.Command, input string, f convertFlags) error {
	ui := NewUI(cmd.ErrOrStderr(), outputJSON)

	client, err := converter.New(ctx, converter.Options{
		Config:     cfg,
		SkipDotEnv: true,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.WriteMetrics(); err != nil {
			ui.Warning("%v", err)
		}
		_ = client.Close()
	}()

	switch f.mode {
	case modeBasic:
		return runBasic(ctx, cmd, client, ui, input, f)
	case modeSmart:
		if f.stream {
			return runStream(ctx, cmd, client, ui, input, f)
		}
		return runBatch(ctx, cmd, client, ui, input, f)
	default:
		return domain.ValidationError(fmt.Sprintf("unknown mode %q (want %s or %s)", f.mode, modeBasic, modeSmart), nil)
	}
}

func runBasic(ctx context.Context, cmd *cobra.Command, client *converter.Client, ui *UI, input string, f convertFlags) error {
	opts := client.Config().Basic
	if f.noDedupe {
		opts.DedupeHeader = false
	}
	if f.preserveNewlines {
		opts.PreserveNewlines = true
	}

	stop := ui.Spinner("Extracting text")
	err := client.ConvertBasic(ctx, converter.BasicRequest{
		Input:   input,
		Stdin:   cmd.InOrStdin(),
		Output:  f.output,
		Writer:  cmd.OutOrStdout(),
		Format:  f.format,
		Options: &opts,
	})
	stop()
	if err != nil {
		return err
	}
	if f.output != "" {
		ui.Success("Saved %s", f.output)
	}
	return nil
}

func smartRequest(cmd *cobra.Command, client *converter.Client, input string, f convertFlags) converter.Request {
	conv := client.Config().Conversion
	if f.pagesPerChunk > 0 {
		conv.MaxPagesPerChunk = f.pagesPerChunk
	}
	if f.removeHeader {
		conv.RemoveHeaderOnContinuation = true
	}
	if f.noStructured {
		conv.UseStructuredMessages = false
	}
	if f.extractText {
		conv.ExtractText = true
	}
	if f.noAutoChunk {
		conv.AutoChunk = false
	}
	if f.maxRetries >= 0 {
		conv.MaxRetries = f.maxRetries
	}

	return converter.Request{
		Input:      input,
		Stdin:      cmd.InOrStdin(),
		Output:     f.output,
		Provider:   f.provider,
		Conversion: &conv,
	}
}

func runBatch(ctx context.Context, cmd *cobra.Command, client *converter.Client, ui *UI, input string, f convertFlags) error {
	req := smartRequest(cmd, client, input, f)
	events := make(chan converter.StreamEvent, 100)
	req.Events = events

	done := make(chan struct{})
	go func() {
		defer close(done)
		trackProgress(ui, events)
	}()

	startTime := time.Now()
	out, err := client.Convert(ctx, req)
	close(events)
	<-done
	if err != nil {
		return err
	}

	if f.output == "" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), out.CSV); err != nil {
			return domain.IOError("failed to write output", err)
		}
	}

	if !out.CompletedFully {
		ui.Warning("Converted %d of %d chunks, stopped at: %v", out.ChunksDone, out.ChunksTotal, out.FailedChunk.Err)
		return errPartial
	}
	ui.Success("Converted %d chunks in %s", out.ChunksTotal, FormatDuration(time.Since(startTime)))
	if f.output != "" {
		ui.Success("Saved %s", f.output)
	}
	return nil
}

func runStream(ctx context.Context, cmd *cobra.Command, client *converter.Client, ui *UI, input string, f convertFlags) error {
	req := smartRequest(cmd, client, input, f)

	st, err := client.ConvertStream(ctx, req)
	if err != nil {
		return err
	}

	var stdout io.Writer
	if f.output == "" {
		stdout = cmd.OutOrStdout()
	}

	bar := ui.ProgressBar(st.ChunksTotal(), "Converting")
	first := true
	for csv := range st.Chunks() {
		if stdout != nil {
			if !first {
				fmt.Fprintln(stdout)
			}
			fmt.Fprint(stdout, csv)
		}
		first = false
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if stdout != nil && !first {
		fmt.Fprintln(stdout)
	}

	switch st.State() {
	case converter.StateCompleted:
		if f.output != "" {
			ui.Success("Saved %s", f.output)
		}
		return nil
	case converter.StateFailed:
		if first {
			return st.Err()
		}
		ui.Warning("Stream stopped early: %v", st.Err())
		return errPartial
	default:
		return ctx.Err()
	}
}

// trackProgress renders batch events until the channel closes.
func trackProgress(ui *UI, events <-chan converter.StreamEvent) {
	var bar *progressbar.ProgressBar
	for ev := range events {
		switch ev.Type {
		case converter.EventStart:
			bar = ui.ProgressBar(ev.ChunkTotal, "Converting")
		case converter.EventChunkComplete:
			if bar != nil {
				_ = bar.Add(1)
			}
		case converter.EventChunkFailed:
			if bar != nil {
				_ = bar.Exit()
				fmt.Fprintln(ui.w)
			}
			ui.Error("%v", ev.Payload)
		case converter.EventPartialSaved:
			ui.Warning("Partial results saved to %v", ev.Payload)
		}
	}
}
