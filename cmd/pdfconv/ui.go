package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI prints status lines to a writer, normally stderr so that CSV on
// stdout stays clean.
type UI struct {
	w       io.Writer
	noColor bool
	quiet   bool
}

// NewUI creates a new UI instance.
func NewUI(w io.Writer, quiet bool) *UI {
	return &UI{
		w:       w,
		noColor: color.NoColor || !isTerminal(w),
		quiet:   quiet,
	}
}

func (ui *UI) line(attr color.Attribute, symbol, format string, args ...interface{}) {
	if ui.quiet {
		return
	}
	msg := fmt.Sprintf("%s %s\n", symbol, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(ui.w, msg)
		return
	}
	color.New(attr).Fprint(ui.w, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line(color.FgGreen, "✓", format, args...)
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.line(color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line(color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line(color.FgCyan, "ℹ", format, args...)
}

// ProgressBar creates a chunk progress bar, or nil in quiet mode.
func (ui *UI) ProgressBar(total int, description string) *progressbar.ProgressBar {
	if ui.quiet {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(ui.w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionEnableColorCodes(!ui.noColor),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Spinner starts a spinner for work of unknown length. The returned stop
// function is safe to call in quiet mode.
func (ui *UI) Spinner(message string) (stop func()) {
	if ui.quiet || ui.noColor {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(ui.w))
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}

// Table prints a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(ui.w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	if ui.noColor {
		printRow(headers)
	} else {
		header := color.New(color.FgCyan, color.Bold)
		parts := make([]string, len(headers))
		for i, h := range headers {
			parts[i] = fmt.Sprintf("%-*s", widths[i], h)
		}
		header.Fprintln(ui.w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	for _, row := range rows {
		printRow(row)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// isTerminal checks if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
