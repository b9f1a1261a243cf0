package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/model-router/config"
	"github.com/upb/model-router/internal/observability"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "router-engine",
	Short: "Evidence-guided model recommendation engine",
	Long: `router-engine scores candidate models on external benchmarks and live
telemetry and serves cascade recommendations (primary plus fallbacks).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}

// setup loads configuration and builds the logger shared by all commands
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
