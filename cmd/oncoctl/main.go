// Command oncoctl is the operator CLI for the evidence engine: run an
// analysis for a profile file, seed collections from JSONL exports, apply
// schema migrations, and inspect collection counts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "oncoctl",
		Short:        "Operator CLI for the tumor board evidence engine",
		SilenceUsage: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
