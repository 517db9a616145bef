package main

import (
	"os/signal"
	"syscall"

	"supplylink/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the background job stream without serving HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		w := a.Worker()
		if err := w.EnsureGroup(ctx); err != nil {
			return err
		}
		logger.Info("worker started",
			zap.String("stream", cfg.JobStream),
			zap.String("group", cfg.JobGroup),
			zap.String("consumer", cfg.JobConsumer),
		)
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
