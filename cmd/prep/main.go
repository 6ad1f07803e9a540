package main

import (
	"context"
	"os"

	"github.com/saulo-duarte/chronos-prep/internal/config"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		config.Logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
