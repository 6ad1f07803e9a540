package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "prep",
	Short:         "Timed assessment server and session tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("api", envDefault("PREP_API_URL", "http://localhost:8080"), "Base URL of the assessments API")
	rootCmd.PersistentFlags().String("token", os.Getenv("PREP_TOKEN"), "Bearer token used by client commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(takeCmd)
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
