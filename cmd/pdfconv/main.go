// Package main provides the pdfconv command line entrypoint.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/pdfconv/internal/config"
)

const version = "1.0.0"

// exitPartial is returned when a conversion stopped early but produced
// partial output.
const exitPartial = 2

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration loaded before every command
	cfg *config.Config
)

// errPartial marks a run that saved partial output.
var errPartial = errors.New("conversion incomplete")

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "pdfconv",
	Short: "Convert PDF spreadsheets and reports to CSV",
	Long: `pdfconv converts PDF documents to CSV.

Two modes are available:
- basic: extracts the text of every page locally, one CSV row per page
- smart: sends the document to an LLM provider in page-range chunks and
  stitches the returned CSV together

Long documents that fail part way through keep the chunks that succeeded:
they are saved next to the output as <output>.partial_N and <output>.incomplete.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if outputJSON {
			cfg.Observability.LogFormat = "json"
		}
		if verbose {
			cfg.Observability.LogLevel = "debug"
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "log in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errPartial) {
			os.Exit(exitPartial)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfconv version %s\n", version)
		},
	}
}
