package main

import (
	"supplylink/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the admin account, sample categories and demo companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		password, _ := cmd.Flags().GetString("password")

		db, err := database.NewConnection(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		res, err := database.Seed(cmd.Context(), db, password)
		if err != nil {
			return err
		}
		logger.Info("seed complete",
			zap.Int("users_created", res.Users),
			zap.Int("categories_created", res.Categories),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("password", "supplylink123", "Password for every seeded account")
	rootCmd.AddCommand(seedCmd)
}
