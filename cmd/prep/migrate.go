package main

import (
	"github.com/saulo-duarte/chronos-prep/internal/assessment"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the assessment tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings := config.Load()
		config.InitLogger(settings.LogLevel, settings.LogFormat)

		if err := config.Connect(cmd.Context(), settings.DatabaseDSN); err != nil {
			return err
		}
		if err := assessment.AutoMigrate(config.DB); err != nil {
			return err
		}
		config.WithContext(cmd.Context()).Info("Migrations applied")
		return nil
	},
}
