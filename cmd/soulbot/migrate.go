package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()
		if err := app.Migrate(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
