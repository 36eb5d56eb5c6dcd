package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/onco-evidence-engine/internal/setup"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-collection document counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup.Build(cmd.Context(), setup.Options{SkipReasoner: true, SkipCache: true})
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
