package benchmarks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

// InternalEvalsFetcher pulls quality metrics from the in-house evaluation
// service and collapses each model's metrics to their mean.
type InternalEvalsFetcher struct {
	fetcherBase
}

// NewInternalEvalsFetcher creates the internal evaluations fetcher. Internal
// model names are already canonical, so no alias table applies.
func NewInternalEvalsFetcher(cfg config.SourceConfig, client *http.Client, logger *zap.Logger) *InternalEvalsFetcher {
	return &InternalEvalsFetcher{
		fetcherBase: fetcherBase{
			source: SourceInternal,
			cfg:    cfg,
			client: client,
			logger: logger,
		},
	}
}

type internalPayload struct {
	Evaluations map[string]map[string]float64 `json:"evaluations"`
}

// Fetch returns the mean internal score (0-1) per model. Never fails.
func (f *InternalEvalsFetcher) Fetch(ctx context.Context) map[string]float64 {
	if !f.cfg.Enabled {
		return internalFallback()
	}
	data, err := f.fetch(ctx)
	return f.resolve(data, err, internalFallback())
}

func (f *InternalEvalsFetcher) fetch(ctx context.Context) (map[string]float64, error) {
	var payload internalPayload
	if err := f.getJSON(ctx, &payload); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(payload.Evaluations))
	for model, metrics := range payload.Evaluations {
		if len(metrics) == 0 {
			continue
		}
		var sum float64
		for _, value := range metrics {
			sum += value
		}
		scores[model] = sum / float64(len(metrics))
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no evaluations in internal payload", ErrSourceUnavailable)
	}

	return scores, nil
}
