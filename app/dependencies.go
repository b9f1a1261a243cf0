package app

import (
	"context"
	"fmt"

	"github.com/upb/model-router/config"
	"github.com/upb/model-router/repositories"
	"github.com/upb/model-router/repositories/postgres"
	"github.com/upb/model-router/services/benchmarks"
	"github.com/upb/model-router/services/recommender"
	"github.com/upb/model-router/services/scheduler"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Data layer
	Store repositories.Store

	// Domain
	Policy      *config.ModelsPolicy
	Fetchers    recommender.Fetchers
	Recommender *recommender.Service
	Scheduler   *scheduler.Scheduler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initPolicy(cfg); err != nil {
		return nil, fmt.Errorf("failed to load models policy: %w", err)
	}

	deps.initFetchers(cfg)
	deps.initRecommender(ctx, cfg)
	deps.initScheduler(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the connection, verifies it, and applies the schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.DB = db

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Store = postgres.NewStore(db, d.Logger)
	return nil
}

// initPolicy loads the models-policy file, falling back to built-in defaults
// when the file is absent
func (d *Dependencies) initPolicy(cfg *config.Config) error {
	policy, err := config.LoadModelsPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	d.Policy = policy

	d.Logger.Info("models policy loaded",
		zap.String("path", cfg.PolicyFile),
		zap.Int("task_types", len(policy.DefaultModels)))
	return nil
}

// initFetchers builds the three external source fetchers over one shared
// HTTP client
func (d *Dependencies) initFetchers(cfg *config.Config) {
	client := benchmarks.NewHTTPClient(cfg.Sources)

	d.Fetchers = recommender.Fetchers{
		Arena:    benchmarks.NewArenaFetcher(cfg.Sources.Arena, client, d.Policy.ChatAliases, d.Logger),
		MTEB:     benchmarks.NewMTEBFetcher(cfg.Sources.MTEB, client, d.Policy.EmbeddingAliases, d.Logger),
		Internal: benchmarks.NewInternalEvalsFetcher(cfg.Sources.Internal, client, d.Logger),
	}
}

// initRecommender wires the recommendation service and warms its cache from
// persisted records
func (d *Dependencies) initRecommender(ctx context.Context, cfg *config.Config) {
	d.Recommender = recommender.NewService(
		cfg.Recommender,
		d.Store,
		d.Fetchers,
		d.Policy.CandidatesFor,
		d.Logger,
	)
	d.Recommender.WarmStart(ctx)
}

func (d *Dependencies) initScheduler(cfg *config.Config) {
	d.Scheduler = scheduler.NewScheduler(cfg.Scheduler, d.Recommender, d.Store, d.Logger)
}

// FetcherList returns the fetchers as a slice for status reporting
func (d *Dependencies) FetcherList() []benchmarks.Fetcher {
	return []benchmarks.Fetcher{d.Fetchers.Arena, d.Fetchers.MTEB, d.Fetchers.Internal}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}

	if d.Recommender != nil {
		d.Recommender.Close()
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
