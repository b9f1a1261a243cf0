package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/model-router/models"
	"github.com/upb/model-router/repositories"
	"go.uber.org/zap"
)

// TelemetryRepository implements repositories.TelemetryRepository
type TelemetryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTelemetryRepository creates a new telemetry repository
func NewTelemetryRepository(db *DB, logger *zap.Logger) repositories.TelemetryRepository {
	return &TelemetryRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts one telemetry event
func (r *TelemetryRepository) Record(ctx context.Context, event models.TelemetryEvent) error {
	query := `
		INSERT INTO telemetry_events (
			model_name, tenant_id, latency_ms, success, cost_per_token, task_type
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	success := 0
	if event.Success {
		success = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ModelName,
		event.TenantID,
		event.LatencyMs,
		success,
		event.CostPerToken,
		event.TaskType,
	)

	if err != nil {
		return fmt.Errorf("failed to record telemetry event: %w", err)
	}

	return nil
}

// Stats aggregates events for a model over the last hoursBack hours. A model
// with no events in the window gets a neutral aggregate (success rate 1.0,
// zero calls) so callers can detect the empty window via TotalCalls.
func (r *TelemetryRepository) Stats(ctx context.Context, modelName string, hoursBack int) (models.TelemetryStats, error) {
	query := `
		SELECT
			COALESCE(AVG(latency_ms), 0),
			COALESCE(AVG(success), 0),
			COALESCE(AVG(cost_per_token), 0),
			COUNT(*)
		FROM telemetry_events
		WHERE model_name = $1
		AND timestamp > NOW() - make_interval(hours => $2)
	`

	stats := models.TelemetryStats{}
	err := r.db.QueryRowContext(ctx, query, modelName, hoursBack).Scan(
		&stats.AvgLatencyMs,
		&stats.SuccessRate,
		&stats.AvgCostPerToken,
		&stats.TotalCalls,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.TelemetryStats{SuccessRate: 1.0}, nil
		}
		return models.TelemetryStats{}, fmt.Errorf("failed to query telemetry stats: %w", err)
	}

	if stats.TotalCalls == 0 {
		return models.TelemetryStats{SuccessRate: 1.0}, nil
	}

	return stats, nil
}

// Cleanup deletes events older than daysToKeep days
func (r *TelemetryRepository) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	query := `
		DELETE FROM telemetry_events
		WHERE timestamp < NOW() - make_interval(days => $1)
	`

	result, err := r.db.ExecContext(ctx, query, daysToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup telemetry events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("old telemetry events removed",
		zap.Int64("deleted", deleted),
		zap.Int("days_kept", daysToKeep))

	return deleted, nil
}
