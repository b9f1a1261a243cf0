// Package benchmarks fetches external model quality signals: Arena Elo
// ratings for chat models, MTEB scores for embedding models, and internal
// evaluation results. Every fetcher is total from the caller's point of
// view: network, parse, and normalization failures are absorbed into a
// fixed fallback table and reported only through logs and failure counters.
package benchmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

// ErrSourceUnavailable marks a failed upstream fetch. It never escapes a
// fetcher's exported Fetch; it exists so logs can distinguish a recovered
// error from a source that simply returned no data.
var ErrSourceUnavailable = errors.New("external source unavailable")

// Data source names, used as external_data_cache keys.
const (
	SourceArena    = "arena_leaderboard"
	SourceMTEB     = "mteb_scores"
	SourceInternal = "internal_evaluations"
)

// Fetcher retrieves a score table from one external source.
type Fetcher interface {
	// Source returns the data source name
	Source() string

	// Fetch returns model scores. It never fails: any upstream problem
	// resolves to the source's fallback table.
	Fetch(ctx context.Context) map[string]float64

	// Failures returns how many upstream fetches have been absorbed
	Failures() uint64

	// TTL returns how long a persisted payload from this source stays valid
	TTL() time.Duration
}

// fetcherBase carries the plumbing shared by all three fetchers.
type fetcherBase struct {
	source   string
	cfg      config.SourceConfig
	client   *http.Client
	logger   *zap.Logger
	failures atomic.Uint64
}

func (f *fetcherBase) Source() string {
	return f.source
}

func (f *fetcherBase) Failures() uint64 {
	return f.failures.Load()
}

func (f *fetcherBase) TTL() time.Duration {
	return f.cfg.CacheTTL
}

// resolve collapses a fetch result to the fallback table at the fetcher
// boundary. Disabled sources skip the network entirely.
func (f *fetcherBase) resolve(data map[string]float64, err error, fallback map[string]float64) map[string]float64 {
	if err != nil {
		f.failures.Add(1)
		f.logger.Warn("external fetch failed, using fallback table",
			zap.String("source", f.source),
			zap.Error(err))
		return fallback
	}
	return data
}

// getJSON issues a single GET against the source endpoint and decodes the
// response body into out.
func (f *fetcherBase) getJSON(ctx context.Context, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrSourceUnavailable, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parsing payload: %v", ErrSourceUnavailable, err)
	}

	return nil
}

// NewHTTPClient builds the shared client used by all fetchers. The timeout
// bounds the whole request including body read.
func NewHTTPClient(cfg config.SourcesConfig) *http.Client {
	return &http.Client{Timeout: cfg.FetchTimeout}
}
