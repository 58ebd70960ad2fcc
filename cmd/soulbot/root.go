package main

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/soulbot/core/cmd"
	"github.com/m3rciful/soulbot/internal/app"
)

const defaultConfigPath = "config.yaml"

var rootCmd = &cobra.Command{
	Use:           "soulbot",
	Short:         "Telegram bot that matches people by shared interests",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return corecmd.Run(runOptions(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config (overrides CONFIG_PATH env var)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runOptions(cmd *cobra.Command) corecmd.Options {
	path, _ := cmd.Flags().GetString("config")
	return corecmd.Options{
		ConfigPath:        path,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			a, err := app.Bootstrap(ctx, cfg.(*app.Config))
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	}
}

// loadConfig resolves the config path the same way the root command does.
func loadConfig(cmd *cobra.Command) (*app.Config, error) {
	path, err := corecmd.ResolveConfigPath(runOptions(cmd))
	if err != nil {
		return nil, err
	}
	return app.Load(path)
}
