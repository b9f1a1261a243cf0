package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExternalDataRepository_Save(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExternalDataRepository(db, zap.NewNop())

	payload := json.RawMessage(`{"gpt-4o":1287}`)
	expires := time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO external_data_cache").
		WithArgs("arena_leaderboard", `{"gpt-4o":1287}`, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), "arena_leaderboard", payload, &expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExternalDataRepository_Load(t *testing.T) {
	t.Run("valid cached payload", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewExternalDataRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT data_json FROM external_data_cache").
			WithArgs("mteb_scores").
			WillReturnRows(sqlmock.NewRows([]string{"data_json"}).AddRow(`{"bge-large-en-v1.5":63.5}`))

		data, err := repo.Load(context.Background(), "mteb_scores")
		require.NoError(t, err)
		assert.JSONEq(t, `{"bge-large-en-v1.5":63.5}`, string(data))
	})

	t.Run("absent or expired payload returns nil", func(t *testing.T) {
		// The query filters expired rows, so an expired payload surfaces
		// exactly like a missing one.
		db, mock := newMockDB(t)
		repo := NewExternalDataRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT data_json FROM external_data_cache").
			WithArgs("arena_leaderboard").
			WillReturnRows(sqlmock.NewRows([]string{"data_json"}))

		data, err := repo.Load(context.Background(), "arena_leaderboard")
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}
