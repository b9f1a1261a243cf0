package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/upb/model-router/models"
)

// PerformanceRepository handles durable model performance records
type PerformanceRepository interface {
	// Save upserts a model performance record keyed by model name
	Save(ctx context.Context, performance models.ModelPerformance) error

	// Load retrieves one record; returns nil when the model is unknown
	Load(ctx context.Context, modelName string) (*models.ModelPerformance, error)

	// LoadAll retrieves every record keyed by model name
	LoadAll(ctx context.Context) (map[string]models.ModelPerformance, error)

	// Count returns the number of performance records
	Count(ctx context.Context) (int64, error)
}

// ExternalDataRepository caches raw external source payloads with TTLs
type ExternalDataRepository interface {
	// Save upserts the payload for a data source with an optional expiry
	Save(ctx context.Context, dataSource string, data json.RawMessage, expiresAt *time.Time) error

	// Load returns the cached payload, or nil when absent or expired
	Load(ctx context.Context, dataSource string) (json.RawMessage, error)
}

// TelemetryRepository stores append-only invocation telemetry
type TelemetryRepository interface {
	// Record inserts one telemetry event
	Record(ctx context.Context, event models.TelemetryEvent) error

	// Stats aggregates events for a model over the last hoursBack hours
	Stats(ctx context.Context, modelName string, hoursBack int) (models.TelemetryStats, error)

	// Cleanup deletes events older than daysToKeep days and returns the
	// number of rows removed
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
}

// Store bundles the three repositories behind one handle, plus the
// monitoring query that spans all of them.
type Store interface {
	Performance() PerformanceRepository
	ExternalData() ExternalDataRepository
	Telemetry() TelemetryRepository

	// DatabaseStats returns row counts for monitoring
	DatabaseStats(ctx context.Context) (models.DatabaseStats, error)
}
