package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema. Column names and types are a
// durable contract: dashboards and ad-hoc queries depend on them.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS model_performance (
			model_name TEXT PRIMARY KEY,
			arena_elo REAL,
			mteb_score REAL,
			internal_score REAL,
			avg_latency_ms REAL,
			cost_per_1k_tokens REAL,
			success_rate REAL DEFAULT 1.0,
			last_updated TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS external_data_cache (
			data_source TEXT PRIMARY KEY,
			data_json TEXT NOT NULL,
			fetched_at TIMESTAMP DEFAULT NOW(),
			expires_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS telemetry_events (
			id BIGSERIAL PRIMARY KEY,
			model_name TEXT NOT NULL,
			tenant_id TEXT,
			latency_ms REAL,
			success INTEGER,
			cost_per_token REAL,
			task_type TEXT,
			timestamp TIMESTAMP DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_model_performance_updated ON model_performance(last_updated);
		CREATE INDEX IF NOT EXISTS idx_telemetry_model ON telemetry_events(model_name);
		CREATE INDEX IF NOT EXISTS idx_telemetry_timestamp ON telemetry_events(timestamp);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}
