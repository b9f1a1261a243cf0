package postgres

import (
	"context"
	"fmt"

	"github.com/upb/model-router/models"
	"github.com/upb/model-router/repositories"
	"go.uber.org/zap"
)

// Store bundles the three repositories over one connection pool.
type Store struct {
	db           *DB
	performance  repositories.PerformanceRepository
	externalData repositories.ExternalDataRepository
	telemetry    repositories.TelemetryRepository
}

// NewStore creates a store backed by an existing connection pool.
func NewStore(db *DB, logger *zap.Logger) *Store {
	return &Store{
		db:           db,
		performance:  NewPerformanceRepository(db, logger),
		externalData: NewExternalDataRepository(db, logger),
		telemetry:    NewTelemetryRepository(db, logger),
	}
}

// Performance returns the model performance repository
func (s *Store) Performance() repositories.PerformanceRepository {
	return s.performance
}

// ExternalData returns the external data cache repository
func (s *Store) ExternalData() repositories.ExternalDataRepository {
	return s.externalData
}

// Telemetry returns the telemetry repository
func (s *Store) Telemetry() repositories.TelemetryRepository {
	return s.telemetry
}

// DatabaseStats returns row counts for monitoring. Telemetry is windowed to
// the last 7 days to keep the number meaningful under retention.
func (s *Store) DatabaseStats(ctx context.Context) (models.DatabaseStats, error) {
	stats := models.DatabaseStats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM model_performance").
		Scan(&stats.ModelPerformanceRecords)
	if err != nil {
		return stats, fmt.Errorf("failed to count model performance records: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM external_data_cache").
		Scan(&stats.ExternalDataCacheRecords)
	if err != nil {
		return stats, fmt.Errorf("failed to count external data cache records: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM telemetry_events WHERE timestamp > NOW() - make_interval(days => 7)").
		Scan(&stats.RecentTelemetryEvents)
	if err != nil {
		return stats, fmt.Errorf("failed to count telemetry events: %w", err)
	}

	return stats, nil
}
