package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/model-router/app"
	"go.uber.org/zap"
)

var refreshTimeout time.Duration

func init() {
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 2*time.Minute, "overall timeout for the refresh")
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch external benchmarks once and persist the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		deps, err := app.NewDependencies(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("wiring dependencies: %w", err)
		}
		defer func() { _ = deps.Close(context.Background()) }()

		if err := deps.Recommender.RefreshCache(ctx, true); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		cache, _ := deps.Recommender.Snapshot()
		logger.Info("refresh completed", zap.Int("models", len(cache)))
		fmt.Printf("refreshed %d models\n", len(cache))
		return nil
	},
}
