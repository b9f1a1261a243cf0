// Package scheduler drives the background maintenance jobs: the bootstrap
// check, the nightly benchmark refresh, the telemetry aggregation loop, and
// the weekly telemetry cleanup. Each job runs in its own goroutine and a
// per-job lock guarantees at most one instance of a job at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/model-router/config"
	"github.com/upb/model-router/repositories"
	"go.uber.org/zap"
)

// Job names as reported in status snapshots.
const (
	JobBootstrap   = "bootstrap_check"
	JobRefresh     = "benchmark_refresh"
	JobAggregation = "telemetry_aggregation"
	JobCleanup     = "telemetry_cleanup"
)

// Recommender is the slice of the recommendation service the scheduler
// drives.
type Recommender interface {
	RefreshCache(ctx context.Context, force bool) error
	AggregateTelemetry(ctx context.Context, window time.Duration) (int, error)
}

// JobStatus is a point-in-time view of one job's counters.
type JobStatus struct {
	Name        string     `json:"name"`
	TotalRuns   uint64     `json:"total_runs"`
	Failed      uint64     `json:"failed_runs"`
	SuccessRate float64    `json:"success_rate"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// jobState tracks one job. The busy mutex is the single-instance guard:
// a run that cannot take it is skipped, never queued.
type jobState struct {
	name string
	busy sync.Mutex

	mu        sync.Mutex
	totalRuns uint64
	failed    uint64
	lastRun   *time.Time
	lastError string
}

func (j *jobState) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	rate := 1.0
	if j.totalRuns > 0 {
		rate = float64(j.totalRuns-j.failed) / float64(j.totalRuns)
	}
	return JobStatus{
		Name:        j.name,
		TotalRuns:   j.totalRuns,
		Failed:      j.failed,
		SuccessRate: rate,
		LastRun:     j.lastRun,
		LastError:   j.lastError,
	}
}

// Scheduler owns the background job goroutines.
type Scheduler struct {
	cfg         config.SchedulerConfig
	recommender Recommender
	store       repositories.Store
	logger      *zap.Logger

	bootstrap   *jobState
	refresh     *jobState
	aggregation *jobState
	cleanup     *jobState

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	startMu sync.Mutex
	started bool
}

// NewScheduler creates a scheduler; Start launches the jobs.
func NewScheduler(cfg config.SchedulerConfig, rec Recommender, store repositories.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		recommender: rec,
		store:       store,
		logger:      logger,
		bootstrap:   &jobState{name: JobBootstrap},
		refresh:     &jobState{name: JobRefresh},
		aggregation: &jobState{name: JobAggregation},
		cleanup:     &jobState{name: JobCleanup},
	}
}

// Start launches all four job goroutines. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(4)
	go s.runBootstrap(ctx)
	go s.runDaily(ctx, s.refresh, s.cfg.RefreshHourUTC, s.refreshOnce)
	go s.runInterval(ctx, s.aggregation, s.cfg.AggregationInterval, s.aggregateOnce)
	go s.runWeekly(ctx, s.cleanup, s.cfg.CleanupWeekday, s.cfg.CleanupHourUTC, s.cleanupOnce)

	s.logger.Info("scheduler started",
		zap.Int("refresh_hour_utc", s.cfg.RefreshHourUTC),
		zap.Duration("aggregation_interval", s.cfg.AggregationInterval),
		zap.String("cleanup_weekday", s.cfg.CleanupWeekday.String()))
}

// Stop cancels the jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.startMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()

	s.startMu.Lock()
	s.started = false
	s.startMu.Unlock()
	s.logger.Info("scheduler stopped")
}

// Running reports whether the job goroutines are live.
func (s *Scheduler) Running() bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	return s.started
}

// Status returns a snapshot of every job's counters along with each
// recurring job's next scheduled run.
func (s *Scheduler) Status() []JobStatus {
	now := time.Now().UTC()

	refresh := s.refresh.status()
	next := nextDailyUTC(now, s.cfg.RefreshHourUTC)
	refresh.NextRun = &next

	aggregation := s.aggregation.status()
	if aggregation.LastRun != nil {
		tick := aggregation.LastRun.Add(s.cfg.AggregationInterval)
		aggregation.NextRun = &tick
	}

	cleanup := s.cleanup.status()
	weekly := nextWeeklyUTC(now, s.cfg.CleanupWeekday, s.cfg.CleanupHourUTC)
	cleanup.NextRun = &weekly

	return []JobStatus{
		s.bootstrap.status(),
		refresh,
		aggregation,
		cleanup,
	}
}

// TriggerManualRefresh runs the benchmark refresh immediately on the
// caller's goroutine. A refresh already in flight makes this an error
// rather than a queued duplicate.
func (s *Scheduler) TriggerManualRefresh(ctx context.Context) error {
	if !s.refresh.busy.TryLock() {
		return fmt.Errorf("benchmark refresh already running")
	}
	defer s.refresh.busy.Unlock()
	return s.execute(ctx, s.refresh, s.refreshOnce)
}

// runBootstrap waits the configured delay, then refreshes only if the
// performance table is empty. It fires once per process.
func (s *Scheduler) runBootstrap(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.BootstrapDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.tryRun(ctx, s.bootstrap, func(ctx context.Context) error {
		count, err := s.store.Performance().Count(ctx)
		if err != nil {
			return fmt.Errorf("counting performance records: %w", err)
		}
		if count > 0 {
			s.logger.Info("performance data present, skipping bootstrap refresh",
				zap.Int64("records", count))
			return nil
		}
		s.logger.Info("performance table empty, running bootstrap refresh")
		return s.recommender.RefreshCache(ctx, true)
	})
}

// runDaily fires the job once per day at the given UTC hour.
func (s *Scheduler) runDaily(ctx context.Context, job *jobState, hourUTC int, fn func(context.Context) error) {
	defer s.wg.Done()

	for {
		wait := time.Until(nextDailyUTC(time.Now().UTC(), hourUTC))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.tryRun(ctx, job, fn)
	}
}

// runWeekly fires the job once per week at the given UTC weekday and hour.
func (s *Scheduler) runWeekly(ctx context.Context, job *jobState, weekday time.Weekday, hourUTC int, fn func(context.Context) error) {
	defer s.wg.Done()

	for {
		wait := time.Until(nextWeeklyUTC(time.Now().UTC(), weekday, hourUTC))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.tryRun(ctx, job, fn)
	}
}

// runInterval fires the job on a fixed ticker.
func (s *Scheduler) runInterval(ctx context.Context, job *jobState, interval time.Duration, fn func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tryRun(ctx, job, fn)
		}
	}
}

// tryRun executes the job unless an instance is already running, in which
// case the tick is dropped.
func (s *Scheduler) tryRun(ctx context.Context, job *jobState, fn func(context.Context) error) {
	if !job.busy.TryLock() {
		s.logger.Warn("job still running, skipping tick", zap.String("job", job.name))
		return
	}
	defer job.busy.Unlock()
	_ = s.execute(ctx, job, fn)
}

// execute runs one job instance with panic recovery and counter updates.
func (s *Scheduler) execute(ctx context.Context, job *jobState, fn func(context.Context) error) (err error) {
	runID := uuid.New().String()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}

		job.mu.Lock()
		job.totalRuns++
		job.lastRun = &started
		if err != nil {
			job.failed++
			job.lastError = err.Error()
		} else {
			job.lastError = ""
		}
		job.mu.Unlock()

		if err != nil {
			s.logger.Error("scheduled job failed",
				zap.String("job", job.name),
				zap.String("run_id", runID),
				zap.Duration("duration", time.Since(started)),
				zap.Error(err))
		} else {
			s.logger.Info("scheduled job completed",
				zap.String("job", job.name),
				zap.String("run_id", runID),
				zap.Duration("duration", time.Since(started)))
		}
	}()

	err = fn(ctx)
	return err
}

func (s *Scheduler) refreshOnce(ctx context.Context) error {
	return s.recommender.RefreshCache(ctx, true)
}

func (s *Scheduler) aggregateOnce(ctx context.Context) error {
	updated, err := s.recommender.AggregateTelemetry(ctx, time.Hour)
	if err != nil {
		return fmt.Errorf("aggregating telemetry: %w", err)
	}
	if updated > 0 {
		s.logger.Info("telemetry aggregated", zap.Int("models_updated", updated))
	}
	return nil
}

func (s *Scheduler) cleanupOnce(ctx context.Context) error {
	deleted, err := s.store.Telemetry().Cleanup(ctx, s.cfg.TelemetryRetentionDays)
	if err != nil {
		return fmt.Errorf("cleaning up telemetry: %w", err)
	}
	s.logger.Info("telemetry cleanup completed",
		zap.Int64("events_deleted", deleted),
		zap.Int("retention_days", s.cfg.TelemetryRetentionDays))

	// Post-cleanup row counts; a stats failure never fails the job.
	stats, err := s.store.DatabaseStats(ctx)
	if err != nil {
		s.logger.Warn("failed to load database stats after cleanup", zap.Error(err))
		return nil
	}
	s.logger.Info("database statistics",
		zap.Int64("performance_records", stats.ModelPerformanceRecords),
		zap.Int64("external_cache_records", stats.ExternalDataCacheRecords),
		zap.Int64("recent_telemetry_events", stats.RecentTelemetryEvents))
	return nil
}

// nextDailyUTC returns the next occurrence of hourUTC strictly after now.
func nextDailyUTC(now time.Time, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeeklyUTC returns the next occurrence of weekday at hourUTC strictly
// after now.
func nextWeeklyUTC(now time.Time, weekday time.Weekday, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
