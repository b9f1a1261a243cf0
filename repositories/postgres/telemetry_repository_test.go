package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/model-router/models"
	"go.uber.org/zap"
)

func TestTelemetryRepository_Record(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTelemetryRepository(db, zap.NewNop())

	tenant := "tenant-1"
	cost := 0.00002
	taskType := "chat"
	event := models.TelemetryEvent{
		ModelName:    "gpt-4o",
		TenantID:     &tenant,
		LatencyMs:    420.5,
		Success:      true,
		CostPerToken: &cost,
		TaskType:     &taskType,
	}

	// Success is stored as an integer so AVG() yields the success rate
	mock.ExpectExec("INSERT INTO telemetry_events").
		WithArgs("gpt-4o", tenant, 420.5, 1, cost, taskType).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Record(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryRepository_Stats(t *testing.T) {
	statsColumns := []string{"avg_latency", "success_rate", "avg_cost", "total"}

	t.Run("aggregates the window", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTelemetryRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM telemetry_events").
			WithArgs("gpt-4o", 1).
			WillReturnRows(sqlmock.NewRows(statsColumns).AddRow(380.0, 0.9, 0.00002, 20))

		stats, err := repo.Stats(context.Background(), "gpt-4o", 1)
		require.NoError(t, err)
		assert.Equal(t, 380.0, stats.AvgLatencyMs)
		assert.Equal(t, 0.9, stats.SuccessRate)
		assert.Equal(t, 0.00002, stats.AvgCostPerToken)
		assert.Equal(t, int64(20), stats.TotalCalls)
	})

	t.Run("empty window yields the neutral aggregate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTelemetryRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM telemetry_events").
			WithArgs("quiet-model", 1).
			WillReturnRows(sqlmock.NewRows(statsColumns).AddRow(0.0, 0.0, 0.0, 0))

		stats, err := repo.Stats(context.Background(), "quiet-model", 1)
		require.NoError(t, err)
		assert.Equal(t, models.TelemetryStats{SuccessRate: 1.0}, stats)
	})
}

func TestTelemetryRepository_Cleanup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTelemetryRepository(db, zap.NewNop())

	mock.ExpectExec("DELETE FROM telemetry_events").
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 123))

	deleted, err := repo.Cleanup(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(123), deleted)
}
