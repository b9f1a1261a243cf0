package benchmarks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/model-router/config"
	"go.uber.org/zap"
)

func testSourceConfig(url string) config.SourceConfig {
	return config.SourceConfig{
		Enabled:  true,
		URL:      url,
		CacheTTL: 6 * time.Hour,
	}
}

func testClient() *http.Client {
	return NewHTTPClient(config.SourcesConfig{FetchTimeout: 5 * time.Second})
}

func TestArenaFetcher(t *testing.T) {
	t.Run("disabled source uses fallback without network", func(t *testing.T) {
		var hits atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		cfg := testSourceConfig(server.URL)
		cfg.Enabled = false
		fetcher := NewArenaFetcher(cfg, testClient(), nil, zap.NewNop())

		scores := fetcher.Fetch(context.Background())
		assert.Equal(t, int64(0), hits.Load())
		assert.Equal(t, 1287.0, scores["gpt-4o"])
		assert.Equal(t, uint64(0), fetcher.Failures())
	})

	t.Run("parses leaderboard payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"leaderboard_table_df":[
				{"key":"gpt-4o-2024-08-06","rating":1290.5},
				{"key":"mixtral-8x7b-v0.1","rating":1170},
				{"key":"unrecognized-model","rating":1400}
			]}`))
		}))
		defer server.Close()

		fetcher := NewArenaFetcher(testSourceConfig(server.URL), testClient(), nil, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, 1290.5, scores["gpt-4o"])
		assert.Equal(t, 1170.0, scores["mixtral-8x7b-instruct"])
		assert.NotContains(t, scores, "unrecognized-model")
		assert.Equal(t, uint64(0), fetcher.Failures())
	})

	t.Run("upstream error falls back and counts the failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		fetcher := NewArenaFetcher(testSourceConfig(server.URL), testClient(), nil, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, arenaFallback(), scores)
		assert.Equal(t, uint64(1), fetcher.Failures())
	})

	t.Run("malformed payload falls back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		fetcher := NewArenaFetcher(testSourceConfig(server.URL), testClient(), nil, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, arenaFallback(), scores)
		assert.Equal(t, uint64(1), fetcher.Failures())
	})

	t.Run("payload with no recognized models falls back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"leaderboard_table_df":[{"key":"mystery","rating":1300}]}`))
		}))
		defer server.Close()

		fetcher := NewArenaFetcher(testSourceConfig(server.URL), testClient(), nil, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, arenaFallback(), scores)
		assert.Equal(t, uint64(1), fetcher.Failures())
	})

	t.Run("policy alias overrides apply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"leaderboard_table_df":[{"key":"house-model-v2","rating":1222}]}`))
		}))
		defer server.Close()

		overrides := map[string]string{"house-model": "house-model"}
		fetcher := NewArenaFetcher(testSourceConfig(server.URL), testClient(), overrides, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, 1222.0, scores["house-model"])
	})
}

func TestMTEBFetcher(t *testing.T) {
	t.Run("parses scores payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[
				{"model":"Text-Embedding-3-Large","score":65.1},
				{"model":"bge-large-en-v1.5","score":63.9}
			]}`))
		}))
		defer server.Close()

		fetcher := NewMTEBFetcher(testSourceConfig(server.URL), testClient(), nil, zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		assert.Equal(t, 65.1, scores["text-embedding-3-large"])
		assert.Equal(t, 63.9, scores["bge-large-en-v1.5"])
	})

	t.Run("disabled source uses fallback", func(t *testing.T) {
		cfg := testSourceConfig("http://unreachable.invalid")
		cfg.Enabled = false
		fetcher := NewMTEBFetcher(cfg, testClient(), nil, zap.NewNop())

		assert.Equal(t, mtebFallback(), fetcher.Fetch(context.Background()))
	})

	t.Run("unreachable host falls back", func(t *testing.T) {
		fetcher := NewMTEBFetcher(testSourceConfig("http://unreachable.invalid"), testClient(), nil, zap.NewNop())

		assert.Equal(t, mtebFallback(), fetcher.Fetch(context.Background()))
		assert.Equal(t, uint64(1), fetcher.Failures())
	})
}

func TestInternalEvalsFetcher(t *testing.T) {
	t.Run("means the metric map per model", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"evaluations":{
				"gpt-4o":{"faithfulness":0.9,"answer_relevancy":0.8},
				"llama-3.1-70b":{"faithfulness":0.77}
			}}`))
		}))
		defer server.Close()

		fetcher := NewInternalEvalsFetcher(testSourceConfig(server.URL), testClient(), zap.NewNop())
		scores := fetcher.Fetch(context.Background())

		require.Contains(t, scores, "gpt-4o")
		assert.InDelta(t, 0.85, scores["gpt-4o"], 1e-9)
		assert.InDelta(t, 0.77, scores["llama-3.1-70b"], 1e-9)
	})

	t.Run("empty evaluations fall back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"evaluations":{}}`))
		}))
		defer server.Close()

		fetcher := NewInternalEvalsFetcher(testSourceConfig(server.URL), testClient(), zap.NewNop())

		assert.Equal(t, internalFallback(), fetcher.Fetch(context.Background()))
		assert.Equal(t, uint64(1), fetcher.Failures())
	})
}

func TestFetcherMetadata(t *testing.T) {
	client := testClient()
	arena := NewArenaFetcher(testSourceConfig("http://x"), client, nil, zap.NewNop())
	mteb := NewMTEBFetcher(testSourceConfig("http://x"), client, nil, zap.NewNop())
	internal := NewInternalEvalsFetcher(testSourceConfig("http://x"), client, zap.NewNop())

	assert.Equal(t, "arena_leaderboard", arena.Source())
	assert.Equal(t, "mteb_scores", mteb.Source())
	assert.Equal(t, "internal_evaluations", internal.Source())
	assert.Equal(t, 6*time.Hour, arena.TTL())
}
