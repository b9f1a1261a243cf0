package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/upb/model-router/models"
	"github.com/upb/model-router/services/benchmarks"
	"github.com/upb/model-router/services/scheduler"
	"github.com/upb/model-router/utils"
	"go.uber.org/zap"
)

// SchedulerControl is the slice of the scheduler the HTTP layer needs.
type SchedulerControl interface {
	Running() bool
	Status() []scheduler.JobStatus
	TriggerManualRefresh(ctx context.Context) error
}

// StatsProvider exposes the cross-table monitoring query.
type StatsProvider interface {
	DatabaseStats(ctx context.Context) (models.DatabaseStats, error)
}

// DebugStatus is the engine introspection snapshot.
type DebugStatus struct {
	CachedModels   []string              `json:"cached_models"`
	CacheSize      int                   `json:"cache_size"`
	LastRefresh    *time.Time            `json:"last_refresh,omitempty"`
	SchedulerUp    bool                  `json:"is_running"`
	Jobs           []scheduler.JobStatus `json:"jobs"`
	SourceFailures map[string]uint64     `json:"source_failures"`
	Database       *models.DatabaseStats `json:"database,omitempty"`
}

// DebugHandler serves engine introspection and the manual refresh trigger
type DebugHandler struct {
	recommender RecommenderService
	scheduler   SchedulerControl
	stats       StatsProvider
	fetchers    []benchmarks.Fetcher
	logger      *zap.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(
	recommender RecommenderService,
	sched SchedulerControl,
	stats StatsProvider,
	fetchers []benchmarks.Fetcher,
	logger *zap.Logger,
) *DebugHandler {
	return &DebugHandler{
		recommender: recommender,
		scheduler:   sched,
		stats:       stats,
		fetchers:    fetchers,
		logger:      logger,
	}
}

// HandleStatus handles GET /api/v1/debug/status
func (h *DebugHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cache, lastRefresh := h.recommender.Snapshot()

	status := DebugStatus{
		CachedModels:   make([]string, 0, len(cache)),
		CacheSize:      len(cache),
		SchedulerUp:    h.scheduler.Running(),
		Jobs:           h.scheduler.Status(),
		SourceFailures: make(map[string]uint64, len(h.fetchers)),
	}
	for name := range cache {
		status.CachedModels = append(status.CachedModels, name)
	}
	sort.Strings(status.CachedModels)
	if !lastRefresh.IsZero() {
		status.LastRefresh = &lastRefresh
	}
	for _, f := range h.fetchers {
		status.SourceFailures[f.Source()] = f.Failures()
	}

	if dbStats, err := h.stats.DatabaseStats(r.Context()); err != nil {
		h.logger.Warn("failed to load database stats", zap.Error(err))
	} else {
		status.Database = &dbStats
	}

	_ = utils.WriteOK(w, status)
}

// RefreshResult reports the outcome of a manual refresh.
type RefreshResult struct {
	Status        string `json:"status"`
	DurationMs    int64  `json:"duration_ms"`
	ModelsUpdated int    `json:"models_updated"`
}

// HandleRefresh handles POST /api/v1/admin/refresh
// The refresh runs synchronously; a second request while one is in
// flight gets a 409.
func (h *DebugHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := h.scheduler.TriggerManualRefresh(r.Context()); err != nil {
		_ = utils.WriteConflict(w, err.Error(), nil)
		return
	}

	cache, _ := h.recommender.Snapshot()
	_ = utils.WriteOK(w, RefreshResult{
		Status:        "completed",
		DurationMs:    time.Since(started).Milliseconds(),
		ModelsUpdated: len(cache),
	})
}
