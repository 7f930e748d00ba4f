package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/promptlab/internal/configuration"
	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/llm"
	"github.com/ahrav/promptlab/internal/winners"
)

func mockConfig(t *testing.T) *configuration.Config {
	t.Helper()
	cfg := configuration.DefaultConfig()
	cfg.LLM.Provider = "mock"
	cfg.LLM.Model = "mock-model"
	cfg.LLM.Timeout = time.Minute
	cfg.RateLimit.Enabled = true
	cfg.Winners.Dir = t.TempDir()
	cfg.Winners.SQLitePath = filepath.Join(t.TempDir(), "winners.db")
	cfg.Datasets.Dir = t.TempDir()
	return cfg
}

func TestInitializeCompleter(t *testing.T) {
	cfg := mockConfig(t)
	c, err := InitializeCompleter(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, c.limiter)

	req := llm.CompletionRequest{
		Model:      "mock-model",
		UserPrompt: "Summarize: the quick brown fox",
		MaxTokens:  64,
	}
	first, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Text)
	assert.Equal(t, first.Text, second.Text)

	_, err = c.Complete(context.Background(), llm.CompletionRequest{UserPrompt: "x", MaxTokens: 1})
	require.ErrorIs(t, err, llm.ErrInvalidRequest)

	t.Run("unknown provider", func(t *testing.T) {
		bad := mockConfig(t)
		bad.LLM.Provider = "bedrock"
		_, err := InitializeCompleter(bad, nil)
		require.ErrorIs(t, err, llm.ErrUnknownProvider)
	})

	t.Run("hosted provider without key", func(t *testing.T) {
		bad := mockConfig(t)
		bad.LLM.Provider = "openai"
		bad.LLM.APIKey = ""
		_, err := InitializeCompleter(bad, nil)
		require.ErrorIs(t, err, llm.ErrMissingAPIKey)
	})

	t.Run("rate limit disabled", func(t *testing.T) {
		off := mockConfig(t)
		off.RateLimit.Enabled = false
		p, err := InitializeCompleter(off, nil)
		require.NoError(t, err)
		assert.Nil(t, p.limiter)
		require.NoError(t, p.Close())
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		bad := mockConfig(t)
		bad.RateLimit.Burst = 0
		_, err := InitializeCompleter(bad, nil)
		require.Error(t, err)
	})
}

func TestInitializeWinnerStore(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := mockConfig(t)
			cfg.Winners.Backend = backend

			store, err := InitializeWinnerStore(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			w := domain.Winner{SystemPrompt: "s", UserPrompt: "{text}", Score: 0.5, BenchmarkedAt: time.Now()}
			require.NoError(t, store.Save(context.Background(), "m", domain.TaskSummarize, w))
			_, found, err := store.Get(context.Background(), "m", domain.TaskSummarize)
			require.NoError(t, err)
			assert.True(t, found)
		})
	}

	cfg := mockConfig(t)
	cfg.Winners.Backend = "redis"
	_, err := InitializeWinnerStore(cfg)
	require.ErrorIs(t, err, configuration.ErrInvalidConfig)
}

func TestNewDependencies(t *testing.T) {
	cfg := mockConfig(t)
	competitors := `{"explain": [{"system": "Explain briefly.", "user": "{text} means:"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Winners.Dir, "competitors.json"), []byte(competitors), 0o600))

	deps, err := NewDependencies(cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	assert.NotNil(t, deps.Completer)
	assert.NotNil(t, deps.Loader)
	assert.NotNil(t, deps.Metrics)
	assert.NotNil(t, deps.EventSink)
	assert.Equal(t, cfg.Optimization.Concurrency, deps.Concurrency)
	assert.Equal(t, winners.Competitors{
		domain.TaskExplain: {{System: "Explain briefly.", User: "{text} means:"}},
	}, deps.Competitors)

	pipeline, ok := deps.Completer.(*Pipeline)
	require.True(t, ok)
	assert.NotNil(t, pipeline.limiter)
	require.NoError(t, deps.Close())
	require.NoError(t, deps.Close())

	assert.Nil(t, InitializeMetrics(nil))
	require.NoError(t, Dependencies{}.Close())
}
