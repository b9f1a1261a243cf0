package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upb/model-router/repositories"
	"go.uber.org/zap"
)

// ExternalDataRepository implements repositories.ExternalDataRepository
type ExternalDataRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExternalDataRepository creates a new external data cache repository
func NewExternalDataRepository(db *DB, logger *zap.Logger) repositories.ExternalDataRepository {
	return &ExternalDataRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts the payload for a data source with an optional expiry
func (r *ExternalDataRepository) Save(ctx context.Context, dataSource string, data json.RawMessage, expiresAt *time.Time) error {
	query := `
		INSERT INTO external_data_cache (data_source, data_json, fetched_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (data_source)
		DO UPDATE SET
			data_json = EXCLUDED.data_json,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.ExecContext(ctx, query, dataSource, string(data), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save external data cache: %w", err)
	}

	r.logger.Debug("external data cached", zap.String("source", dataSource))
	return nil
}

// Load returns the cached payload, or nil when absent or expired
func (r *ExternalDataRepository) Load(ctx context.Context, dataSource string) (json.RawMessage, error) {
	query := `
		SELECT data_json FROM external_data_cache
		WHERE data_source = $1
		AND (expires_at IS NULL OR expires_at > NOW())
	`

	var data string
	err := r.db.QueryRowContext(ctx, query, dataSource).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load external data cache: %w", err)
	}

	return json.RawMessage(data), nil
}
