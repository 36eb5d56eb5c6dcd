package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/internal/setup"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		profilePath string
		packetOnly  bool
		noNarrative bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a full case analysis for a patient profile JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(profilePath)
			if err != nil {
				return fmt.Errorf("reading profile: %w", err)
			}
			var profile domain.PatientProfile
			if err := json.Unmarshal(data, &profile); err != nil {
				return fmt.Errorf("parsing profile: %w", err)
			}

			app, err := setup.Build(cmd.Context(), setup.Options{SkipReasoner: noNarrative})
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Orchestrator.Analyze(cmd.Context(), profile)
			if err != nil {
				return err
			}

			var out any = map[string]any{
				"analysis": result.Analysis,
				"packet":   result.Packet,
			}
			if packetOnly {
				out = result.Packet
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "path to the patient profile JSON file")
	cmd.Flags().BoolVar(&packetOnly, "packet-only", false, "print only the tumor board packet")
	cmd.Flags().BoolVar(&noNarrative, "no-narrative", false, "skip narrative synthesis")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}
