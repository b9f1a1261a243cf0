package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/upb/model-router/config"
	"github.com/upb/model-router/models"
	"github.com/upb/model-router/repositories"
	"github.com/upb/model-router/services/benchmarks"
	"github.com/upb/model-router/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CandidateFunc enumerates the candidate models for a task type. Owned by
// deployment configuration and injected at construction.
type CandidateFunc func(taskType string) []string

// Fetchers groups the three external benchmark sources.
type Fetchers struct {
	Arena    benchmarks.Fetcher
	MTEB     benchmarks.Fetcher
	Internal benchmarks.Fetcher
}

// Service is the evidence-guided recommendation façade. It owns the
// in-memory performance cache: a published map is never written to, every
// mutation clones it and swaps the reference under the write lock, so
// readers holding a snapshot reference always see a fully consistent cache.
type Service struct {
	cfg        config.RecommenderConfig
	store      repositories.Store
	fetchers   Fetchers
	candidates CandidateFunc
	logger     *zap.Logger

	mu              sync.RWMutex
	cache           map[string]models.ModelPerformance
	lastCacheUpdate time.Time

	telemetry  chan models.TelemetryEvent
	writerDone chan struct{}
	closeOnce  sync.Once
}

// telemetryBuffer bounds the number of telemetry events waiting for the
// writer; events beyond it are dropped with a warning.
const telemetryBuffer = 256

// NewService creates the recommendation service. The cache starts empty;
// call WarmStart to preload persisted records.
func NewService(
	cfg config.RecommenderConfig,
	store repositories.Store,
	fetchers Fetchers,
	candidates CandidateFunc,
	logger *zap.Logger,
) *Service {
	s := &Service{
		cfg:        cfg,
		store:      store,
		fetchers:   fetchers,
		candidates: candidates,
		logger:     logger,
		cache:      make(map[string]models.ModelPerformance),
		telemetry:  make(chan models.TelemetryEvent, telemetryBuffer),
		writerDone: make(chan struct{}),
	}
	go s.telemetryWriter()
	return s
}

// WarmStart loads persisted performance records into the cache so restarts
// do not begin cold. Best effort: a store failure logs and the service
// starts with an empty cache.
func (s *Service) WarmStart(ctx context.Context) {
	persisted, err := s.store.Performance().LoadAll(ctx)
	if err != nil {
		s.logger.Error("failed to preload performance records, starting cold", zap.Error(err))
		return
	}
	if len(persisted) == 0 {
		return
	}

	s.mu.Lock()
	s.cache = persisted
	s.lastCacheUpdate = time.Now()
	s.mu.Unlock()

	s.logger.Info("performance cache preloaded", zap.Int("models", len(persisted)))
}

// RecommendModel returns the primary model and up to two fallbacks for the
// given context. When availableModels is nil the injected candidate list
// for the task type is used.
func (s *Service) RecommendModel(ctx context.Context, tctx models.TaskContext, availableModels []string) (models.Recommendation, error) {
	if tctx.Complexity == "" {
		tctx.Complexity = models.ComplexityMedium
	}
	if err := utils.ValidateStruct(tctx); err != nil {
		return models.Recommendation{}, fmt.Errorf("invalid task context: %w", err)
	}

	if err := s.ensureFresh(ctx); err != nil {
		return models.Recommendation{}, err
	}

	candidates := availableModels
	if candidates == nil {
		candidates = s.candidates(string(tctx.TaskType))
	}

	// Grab the cache reference once; the copy-on-write discipline
	// guarantees the map is never mutated after publication.
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()

	ranked := make([]scoredModel, 0, len(candidates))
	for _, name := range candidates {
		ranked = append(ranked, scoredModel{
			name:  name,
			score: Score(lookupIn(cache, name), tctx),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	recommendation, err := selectCascade(ranked, tctx, func(name string) *models.ModelPerformance {
		return lookupIn(cache, name)
	}, s.cfg.EfficientCostPer1K)
	if err != nil {
		return models.Recommendation{}, err
	}

	s.logger.Info("model recommended",
		zap.String("primary", recommendation.Primary),
		zap.Strings("fallbacks", recommendation.Fallbacks),
		zap.String("task_type", string(tctx.TaskType)),
		zap.String("tenant", tctx.TenantID))

	return recommendation, nil
}

// UpdateModelPerformance folds one observed invocation into the cached
// record via exponential smoothing. It mutates memory only; the telemetry
// event is written in the background and the smoothed record is persisted
// by the scheduler's aggregation job, so this call never blocks on I/O.
func (s *Service) UpdateModelPerformance(model string, latencyMs float64, success bool, costPerToken *float64) {
	now := time.Now()

	s.mu.Lock()
	perf, ok := s.cache[model]
	if !ok {
		perf = models.NewModelPerformance(model)
	}
	SmoothObservation(&perf, latencyMs, success, costPerToken, s.cfg.SmoothingAlpha, now)
	s.cache = withEntry(s.cache, model, perf)
	s.mu.Unlock()

	s.logger.Debug("model performance updated",
		zap.String("model", model),
		zap.Float64("latency_ms", latencyMs),
		zap.Bool("success", success))

	event := models.TelemetryEvent{
		ModelName:    model,
		LatencyMs:    latencyMs,
		Success:      success,
		CostPerToken: costPerToken,
	}
	select {
	case s.telemetry <- event:
	default:
		s.logger.Warn("telemetry buffer full, dropping event", zap.String("model", model))
	}
}

// telemetryWriter drains the telemetry buffer into the store, one event at
// a time. It exits when the channel is closed.
func (s *Service) telemetryWriter() {
	defer close(s.writerDone)

	for event := range s.telemetry {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.Telemetry().Record(ctx, event); err != nil {
			s.logger.Error("failed to record telemetry event",
				zap.String("model", event.ModelName),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops the telemetry writer after draining buffered events.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.telemetry) })
	<-s.writerDone
}

// RefreshCache fetches all three external sources and atomically replaces
// the performance cache. With force=false the refresh is skipped while the
// cache is still fresh.
func (s *Service) RefreshCache(ctx context.Context, force bool) error {
	if !force && !s.isStale() {
		return nil
	}

	s.logger.Info("refreshing model performance cache")

	var arenaData, mtebData, internalData map[string]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		arenaData = s.fetchers.Arena.Fetch(gctx)
		return nil
	})
	g.Go(func() error {
		mtebData = s.fetchers.MTEB.Fetch(gctx)
		return nil
	})
	g.Go(func() error {
		internalData = s.fetchers.Internal.Fetch(gctx)
		return nil
	})
	// Fetchers absorb their own failures; the group only orders the waits.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache refresh canceled: %w", err)
	}

	now := time.Now()

	s.mu.Lock()
	s.cache = mergePerformance(s.cache, arenaData, mtebData, internalData, now)
	s.lastCacheUpdate = now
	size := len(s.cache)
	s.mu.Unlock()

	s.persistPayload(ctx, s.fetchers.Arena, arenaData, now)
	s.persistPayload(ctx, s.fetchers.MTEB, mtebData, now)
	s.persistPayload(ctx, s.fetchers.Internal, internalData, now)
	s.PersistSnapshot(ctx)

	s.logger.Info("model performance cache refreshed", zap.Int("models", size))
	return nil
}

// persistPayload caches a fetched score table with the source's TTL.
// Persistence failures never fail a refresh.
func (s *Service) persistPayload(ctx context.Context, fetcher benchmarks.Fetcher, data map[string]float64, now time.Time) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode source payload",
			zap.String("source", fetcher.Source()), zap.Error(err))
		return
	}
	expires := now.Add(fetcher.TTL())
	if err := s.store.ExternalData().Save(ctx, fetcher.Source(), payload, &expires); err != nil {
		s.logger.Error("failed to cache source payload",
			zap.String("source", fetcher.Source()), zap.Error(err))
	}
}

// PersistSnapshot writes every cached performance record to the store.
// Best effort per record.
func (s *Service) PersistSnapshot(ctx context.Context) {
	snapshot, _ := s.Snapshot()
	for name, perf := range snapshot {
		if err := s.store.Performance().Save(ctx, perf); err != nil {
			s.logger.Error("failed to persist performance record",
				zap.String("model", name), zap.Error(err))
		}
	}
}

// AggregateTelemetry folds each cached model's recent telemetry window into
// its performance record and persists the result. Models with no calls in
// the window are left alone. It returns the number of records updated.
func (s *Service) AggregateTelemetry(ctx context.Context, window time.Duration) (int, error) {
	snapshot, _ := s.Snapshot()
	hours := int(window.Hours())
	if hours < 1 {
		hours = 1
	}

	now := time.Now()
	updated := 0
	var lastErr error
	for name := range snapshot {
		stats, err := s.store.Telemetry().Stats(ctx, name, hours)
		if err != nil {
			lastErr = err
			s.logger.Error("failed to load telemetry stats",
				zap.String("model", name), zap.Error(err))
			continue
		}
		if stats.TotalCalls == 0 {
			continue
		}

		s.mu.Lock()
		perf, ok := s.cache[name]
		if !ok {
			s.mu.Unlock()
			continue
		}
		SmoothTelemetry(&perf, stats, s.cfg.SmoothingAlpha, now)
		s.cache = withEntry(s.cache, name, perf)
		s.mu.Unlock()

		if err := s.store.Performance().Save(ctx, perf); err != nil {
			lastErr = err
			s.logger.Error("failed to persist aggregated record",
				zap.String("model", name), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, lastErr
}

// mergePerformance builds a brand-new cache map. Benchmark-derived fields
// are overwritten from the fetched tables; telemetry-derived fields carry
// over from the previous cache untouched. Models known only from telemetry
// survive the refresh.
func mergePerformance(
	previous map[string]models.ModelPerformance,
	arenaData, mtebData, internalData map[string]float64,
	now time.Time,
) map[string]models.ModelPerformance {
	next := make(map[string]models.ModelPerformance, len(previous)+len(arenaData)+len(mtebData))

	for name, perf := range previous {
		next[name] = perf
	}

	seen := make(map[string]bool, len(arenaData)+len(mtebData)+len(internalData))
	for _, table := range []map[string]float64{arenaData, mtebData, internalData} {
		for name := range table {
			seen[name] = true
		}
	}

	for name := range seen {
		perf, ok := next[name]
		if !ok {
			perf = models.NewModelPerformance(name)
		}
		perf.ArenaElo = optionalFrom(arenaData, name)
		perf.MTEBScore = optionalFrom(mtebData, name)
		perf.InternalScore = optionalFrom(internalData, name)
		perf.LastUpdated = &now
		next[name] = perf
	}

	return next
}

// withEntry clones the cache with one entry replaced. Published maps are
// read without the lock, so mutations must swap the reference instead of
// writing in place.
func withEntry(cache map[string]models.ModelPerformance, name string, perf models.ModelPerformance) map[string]models.ModelPerformance {
	next := make(map[string]models.ModelPerformance, len(cache)+1)
	for k, v := range cache {
		next[k] = v
	}
	next[name] = perf
	return next
}

func optionalFrom(table map[string]float64, name string) *float64 {
	if value, ok := table[name]; ok {
		v := value
		return &v
	}
	return nil
}

// ensureFresh refreshes synchronously when the staleness threshold has
// passed. The common path is a cheap time comparison.
func (s *Service) ensureFresh(ctx context.Context) error {
	if !s.isStale() {
		return nil
	}
	return s.RefreshCache(ctx, false)
}

func (s *Service) isStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCacheUpdate.IsZero() || time.Since(s.lastCacheUpdate) >= s.cfg.CacheStaleness
}

// MarkStale forces the next refresh to run regardless of cache age.
func (s *Service) MarkStale() {
	s.mu.Lock()
	s.lastCacheUpdate = time.Time{}
	s.mu.Unlock()
}

// GetPerformance returns a copy of the cached record for one model, or nil.
func (s *Service) GetPerformance(model string) *models.ModelPerformance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupIn(s.cache, model)
}

// Snapshot returns a copy of the performance cache and its last update time.
func (s *Service) Snapshot() (map[string]models.ModelPerformance, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]models.ModelPerformance, len(s.cache))
	for name, perf := range s.cache {
		snapshot[name] = perf
	}
	return snapshot, s.lastCacheUpdate
}

func lookupIn(cache map[string]models.ModelPerformance, name string) *models.ModelPerformance {
	if perf, ok := cache[name]; ok {
		return &perf
	}
	return nil
}
