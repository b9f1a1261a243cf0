package benchmarks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

// ArenaFetcher pulls Elo ratings from the chat arena leaderboard.
type ArenaFetcher struct {
	fetcherBase
	aliases map[string]string
}

// NewArenaFetcher creates the arena leaderboard fetcher. aliasOverrides come
// from the deployment's models policy and are layered over the built-in
// alias table.
func NewArenaFetcher(cfg config.SourceConfig, client *http.Client, aliasOverrides map[string]string, logger *zap.Logger) *ArenaFetcher {
	return &ArenaFetcher{
		fetcherBase: fetcherBase{
			source: SourceArena,
			cfg:    cfg,
			client: client,
			logger: logger,
		},
		aliases: mergeAliases(chatAliases, aliasOverrides),
	}
}

// arenaPayload mirrors the leaderboard export format.
type arenaPayload struct {
	Leaderboard []struct {
		Key    string  `json:"key"`
		Rating float64 `json:"rating"`
	} `json:"leaderboard_table_df"`
}

// Fetch returns Elo by canonical model name. Never fails; see package doc.
func (f *ArenaFetcher) Fetch(ctx context.Context) map[string]float64 {
	if !f.cfg.Enabled {
		return arenaFallback()
	}
	data, err := f.fetch(ctx)
	return f.resolve(data, err, arenaFallback())
}

func (f *ArenaFetcher) fetch(ctx context.Context) (map[string]float64, error) {
	var payload arenaPayload
	if err := f.getJSON(ctx, &payload); err != nil {
		return nil, err
	}

	ratings := make(map[string]float64, len(payload.Leaderboard))
	for _, row := range payload.Leaderboard {
		canonical := normalizeName(row.Key, f.aliases)
		if canonical == "" {
			continue
		}
		ratings[canonical] = row.Rating
	}

	if len(ratings) == 0 {
		return nil, fmt.Errorf("%w: no recognized models in arena payload", ErrSourceUnavailable)
	}

	return ratings, nil
}
