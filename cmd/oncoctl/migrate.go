package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onco-evidence-engine/internal/config"
	"github.com/onco-evidence-engine/internal/database"
	"github.com/onco-evidence-engine/internal/setup"
)

func newMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back collection schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			configManager, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			cfg := configManager.GetConfig()
			logger := setup.NewLogger(cfg.Logging)

			runner, err := database.NewMigrationRunner(
				configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			if down {
				return runner.Down()
			}
			return runner.Up()
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations")
	return cmd
}
