package benchmarks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

// MTEBFetcher pulls aggregate embedding-benchmark scores.
type MTEBFetcher struct {
	fetcherBase
	aliases map[string]string
}

// NewMTEBFetcher creates the MTEB scores fetcher.
func NewMTEBFetcher(cfg config.SourceConfig, client *http.Client, aliasOverrides map[string]string, logger *zap.Logger) *MTEBFetcher {
	return &MTEBFetcher{
		fetcherBase: fetcherBase{
			source: SourceMTEB,
			cfg:    cfg,
			client: client,
			logger: logger,
		},
		aliases: mergeAliases(embeddingAliases, aliasOverrides),
	}
}

type mtebPayload struct {
	Data []struct {
		Model string  `json:"model"`
		Score float64 `json:"score"`
	} `json:"data"`
}

// Fetch returns MTEB scores (0-100) by canonical model name. Never fails.
func (f *MTEBFetcher) Fetch(ctx context.Context) map[string]float64 {
	if !f.cfg.Enabled {
		return mtebFallback()
	}
	data, err := f.fetch(ctx)
	return f.resolve(data, err, mtebFallback())
}

func (f *MTEBFetcher) fetch(ctx context.Context) (map[string]float64, error) {
	var payload mtebPayload
	if err := f.getJSON(ctx, &payload); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(payload.Data))
	for _, row := range payload.Data {
		canonical := normalizeName(row.Model, f.aliases)
		if canonical == "" {
			continue
		}
		scores[canonical] = row.Score
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no recognized models in mteb payload", ErrSourceUnavailable)
	}

	return scores, nil
}
