package main

import (
	"fmt"
	"os"

	"supplylink/internal/config"
	"supplylink/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "supplyctl",
	Short:        "Operational commands for SupplyLink",
	Long:         `supplyctl migrates and seeds the SupplyLink database and runs the background job worker.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and the logger shared by every subcommand.
func setup() (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.IsRelease())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return cfg, logger, nil
}
