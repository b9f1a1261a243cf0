package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/model-router/models"
	"github.com/upb/model-router/repositories"
	"go.uber.org/zap"
)

// PerformanceRepository implements repositories.PerformanceRepository
type PerformanceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(db *DB, logger *zap.Logger) repositories.PerformanceRepository {
	return &PerformanceRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts a model performance record
func (r *PerformanceRepository) Save(ctx context.Context, performance models.ModelPerformance) error {
	query := `
		INSERT INTO model_performance (
			model_name, arena_elo, mteb_score, internal_score,
			avg_latency_ms, cost_per_1k_tokens, success_rate, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (model_name)
		DO UPDATE SET
			arena_elo = EXCLUDED.arena_elo,
			mteb_score = EXCLUDED.mteb_score,
			internal_score = EXCLUDED.internal_score,
			avg_latency_ms = EXCLUDED.avg_latency_ms,
			cost_per_1k_tokens = EXCLUDED.cost_per_1k_tokens,
			success_rate = EXCLUDED.success_rate,
			last_updated = EXCLUDED.last_updated
	`

	_, err := r.db.ExecContext(ctx, query,
		performance.ModelName,
		performance.ArenaElo,
		performance.MTEBScore,
		performance.InternalScore,
		performance.AvgLatencyMs,
		performance.CostPer1KTokens,
		performance.SuccessRate,
		performance.LastUpdated,
	)

	if err != nil {
		return fmt.Errorf("failed to save model performance: %w", err)
	}

	r.logger.Debug("model performance saved", zap.String("model", performance.ModelName))
	return nil
}

// Load retrieves one record; returns nil when the model is unknown
func (r *PerformanceRepository) Load(ctx context.Context, modelName string) (*models.ModelPerformance, error) {
	query := `
		SELECT model_name, arena_elo, mteb_score, internal_score,
		       avg_latency_ms, cost_per_1k_tokens, success_rate, last_updated
		FROM model_performance
		WHERE model_name = $1
	`

	performance := models.ModelPerformance{}
	err := r.db.QueryRowContext(ctx, query, modelName).Scan(
		&performance.ModelName,
		&performance.ArenaElo,
		&performance.MTEBScore,
		&performance.InternalScore,
		&performance.AvgLatencyMs,
		&performance.CostPer1KTokens,
		&performance.SuccessRate,
		&performance.LastUpdated,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load model performance: %w", err)
	}

	return &performance, nil
}

// LoadAll retrieves every record keyed by model name
func (r *PerformanceRepository) LoadAll(ctx context.Context) (map[string]models.ModelPerformance, error) {
	query := `
		SELECT model_name, arena_elo, mteb_score, internal_score,
		       avg_latency_ms, cost_per_1k_tokens, success_rate, last_updated
		FROM model_performance
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model performance: %w", err)
	}
	defer rows.Close()

	performances := make(map[string]models.ModelPerformance)
	for rows.Next() {
		performance := models.ModelPerformance{}
		err := rows.Scan(
			&performance.ModelName,
			&performance.ArenaElo,
			&performance.MTEBScore,
			&performance.InternalScore,
			&performance.AvgLatencyMs,
			&performance.CostPer1KTokens,
			&performance.SuccessRate,
			&performance.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model performance: %w", err)
		}
		performances[performance.ModelName] = performance
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance rows: %w", err)
	}

	return performances, nil
}

// Count returns the number of performance records
func (r *PerformanceRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM model_performance").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count model performance records: %w", err)
	}
	return count, nil
}
