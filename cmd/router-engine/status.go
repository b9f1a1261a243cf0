package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/model-router/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print engine and database statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		deps, err := app.NewDependencies(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("wiring dependencies: %w", err)
		}
		defer func() { _ = deps.Close(context.Background()) }()

		dbStats, err := deps.Store.DatabaseStats(ctx)
		if err != nil {
			return fmt.Errorf("loading database stats: %w", err)
		}

		cache, lastRefresh := deps.Recommender.Snapshot()

		status := map[string]interface{}{
			"environment":   cfg.Environment,
			"database":      dbStats,
			"cached_models": len(cache),
		}
		if !lastRefresh.IsZero() {
			status["last_refresh"] = lastRefresh.UTC().Format(time.RFC3339)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	},
}
