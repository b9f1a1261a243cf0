package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/model-router/models"
	"github.com/upb/model-router/services/recommender"
	"github.com/upb/model-router/services/scheduler"
	"github.com/upb/model-router/utils"
	"go.uber.org/zap"
)

type stubRecommender struct {
	recommendation models.Recommendation
	recommendErr   error
	lastContext    models.TaskContext
	updates        []string
	performance    map[string]*models.ModelPerformance
	snapshot       map[string]models.ModelPerformance
	lastRefresh    time.Time
}

func (s *stubRecommender) RecommendModel(ctx context.Context, tctx models.TaskContext, available []string) (models.Recommendation, error) {
	s.lastContext = tctx
	if s.recommendErr != nil {
		return models.Recommendation{}, s.recommendErr
	}
	return s.recommendation, nil
}

func (s *stubRecommender) UpdateModelPerformance(model string, latencyMs float64, success bool, costPerToken *float64) {
	s.updates = append(s.updates, model)
}

func (s *stubRecommender) GetPerformance(model string) *models.ModelPerformance {
	return s.performance[model]
}

func (s *stubRecommender) Snapshot() (map[string]models.ModelPerformance, time.Time) {
	return s.snapshot, s.lastRefresh
}

func newRecRouter(stub *stubRecommender) http.Handler {
	h := NewRecommendationHandler(stub, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/recommendations", h.HandleRecommend)
	r.Post("/telemetry", h.HandleTelemetry)
	r.Get("/models/{name}/performance", h.HandleModelPerformance)
	return r
}

func TestHandleRecommend(t *testing.T) {
	t.Run("returns the cascade", func(t *testing.T) {
		stub := &stubRecommender{
			recommendation: models.Recommendation{
				Primary:   "gpt-4o-mini",
				Fallbacks: []string{"gpt-4o"},
			},
		}
		router := newRecRouter(stub)

		body := `{"task_type":"chat","tenant_id":"tenant-1","complexity":"medium","cost_sensitive":true}`
		req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, stub.lastContext.CostSensitive)
		assert.Equal(t, "tenant-1", stub.lastContext.TenantID)

		var resp struct {
			Data models.Recommendation `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "gpt-4o-mini", resp.Data.Primary)
		assert.Equal(t, []string{"gpt-4o"}, resp.Data.Fallbacks)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		router := newRecRouter(&stubRecommender{})

		req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader("{broken"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure is a 400 with field details", func(t *testing.T) {
		stub := &stubRecommender{
			recommendErr: utils.NewValidationError(nil),
		}
		router := newRecRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(`{"task_type":"chat"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no candidates is a 422", func(t *testing.T) {
		stub := &stubRecommender{recommendErr: recommender.ErrNoCandidateModels}
		router := newRecRouter(stub)

		body := `{"task_type":"chat","tenant_id":"tenant-1"}`
		req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleTelemetry(t *testing.T) {
	t.Run("valid event is accepted", func(t *testing.T) {
		stub := &stubRecommender{}
		router := newRecRouter(stub)

		body := `{"model_name":"gpt-4o","latency_ms":420.5,"success":true,"cost_per_token":0.00002}`
		req := httptest.NewRequest(http.MethodPost, "/telemetry", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"gpt-4o"}, stub.updates)
	})

	t.Run("missing model name is a 400", func(t *testing.T) {
		stub := &stubRecommender{}
		router := newRecRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/telemetry", strings.NewReader(`{"latency_ms":100}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, stub.updates)
	})

	t.Run("negative latency is a 400", func(t *testing.T) {
		stub := &stubRecommender{}
		router := newRecRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/telemetry", strings.NewReader(`{"model_name":"m","latency_ms":-5}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleModelPerformance(t *testing.T) {
	t.Run("known model", func(t *testing.T) {
		elo := 1287.0
		stub := &stubRecommender{
			performance: map[string]*models.ModelPerformance{
				"gpt-4o": {ModelName: "gpt-4o", ArenaElo: &elo, SuccessRate: 0.99},
			},
		}
		router := newRecRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/models/gpt-4o/performance", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data models.ModelPerformance `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "gpt-4o", resp.Data.ModelName)
	})

	t.Run("unknown model is a 404", func(t *testing.T) {
		router := newRecRouter(&stubRecommender{})

		req := httptest.NewRequest(http.MethodGet, "/models/nope/performance", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type stubScheduler struct {
	jobs       []scheduler.JobStatus
	running    bool
	refreshErr error
	triggered  int
}

func (s *stubScheduler) Running() bool { return s.running }

func (s *stubScheduler) Status() []scheduler.JobStatus { return s.jobs }

func (s *stubScheduler) TriggerManualRefresh(ctx context.Context) error {
	s.triggered++
	return s.refreshErr
}
