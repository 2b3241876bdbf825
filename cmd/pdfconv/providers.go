package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spherical/pdfconv/internal/llm"
)

// newProvidersCmd creates the providers subcommand.
func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := cfg.ModelOverrides()
			var descs []llm.Descriptor
			for _, p := range llm.Providers() {
				d, err := llm.Resolve(p)
				if err != nil {
					return err
				}
				if m, ok := overrides[p]; ok {
					d.Model = m
				}
				descs = append(descs, d)
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(descs)
			}

			ui := NewUI(cmd.OutOrStdout(), false)
			rows := make([][]string, 0, len(descs))
			for _, d := range descs {
				chunkPages := "-"
				if d.MaxChunkPagesOverride > 0 {
					chunkPages = strconv.Itoa(d.MaxChunkPagesOverride)
				}
				id := string(d.ID)
				if id == cfg.Provider.Default {
					id += " (default)"
				}
				rows = append(rows, []string{
					id,
					d.Model,
					d.AuthEnvVar,
					strconv.FormatBool(d.SupportsStructuredMessages),
					chunkPages,
				})
			}
			ui.Table([]string{"PROVIDER", "MODEL", "CREDENTIAL", "STRUCTURED", "MAX PAGES"}, rows)
			return nil
		},
	}
}
