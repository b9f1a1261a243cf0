package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/model-router/app"
	"github.com/upb/model-router/routes"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with its background scheduler and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := app.NewDependencies(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("wiring dependencies: %w", err)
		}
		defer func() {
			if err := deps.Close(context.Background()); err != nil {
				logger.Error("shutdown errors", zap.Error(err))
			}
		}()

		deps.Scheduler.Start(ctx)

		server := &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      routes.SetupRoutes(deps),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("http server listening", zap.String("address", server.Addr))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		select {
		case err := <-serverErr:
			return fmt.Errorf("http server failed: %w", err)
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}

		logger.Info("server stopped cleanly")
		return nil
	},
}
