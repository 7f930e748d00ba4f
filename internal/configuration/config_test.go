package configuration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/promptlab/internal/domain"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-5.1-mini", cfg.LLM.Model)
	assert.Equal(t, 150, cfg.Optimization.MaxMetricCalls)
	assert.Equal(t, 1337, cfg.Optimization.Seed)
	assert.Equal(t, 50, cfg.Optimization.TrainSize)
	assert.Equal(t, 20, cfg.Optimization.ValSize)
	assert.Equal(t, "openai/gpt-5.2", cfg.Optimization.ReflectionLM)
	assert.Equal(t, domain.DefaultPromptConstraints(), cfg.Prompts)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown_provider", mutate: func(c *Config) { c.LLM.Provider = "google" }},
		{name: "empty_model", mutate: func(c *Config) { c.LLM.Model = "" }},
		{name: "zero_val_size", mutate: func(c *Config) { c.Optimization.ValSize = 0 }},
		{name: "zero_concurrency", mutate: func(c *Config) { c.Optimization.Concurrency = 0 }},
		{name: "bad_backend", mutate: func(c *Config) { c.Winners.Backend = "redis" }},
		{name: "sqlite_without_path", mutate: func(c *Config) {
			c.Winners.Backend = WinnersBackendSQLite
			c.Winners.SQLitePath = ""
		}},
		{name: "bad_log_level", mutate: func(c *Config) { c.Observability.LogLevel = "trace" }},
		{name: "metrics_without_addr", mutate: func(c *Config) {
			c.Observability.MetricsEnabled = true
			c.Observability.MetricsAddr = ""
		}},
		{name: "inverted_prompt_bounds", mutate: func(c *Config) { c.Prompts.MaxUserWords = 1 }},
		{name: "negative_penalty", mutate: func(c *Config) { c.Prompts.LengthPenalty = -1 }},
		{name: "zero_rate", mutate: func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{name: "no_output_dir", mutate: func(c *Config) { c.OutputDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: qwen3:0.6b
  timeout: 45s
optimization:
  val_size: 5
prompts:
  max_system_words: 40
winners:
  backend: sqlite
  sqlite_path: /tmp/winners.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen3:0.6b", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.Optimization.ValSize)
	assert.Equal(t, DefaultTrainSize, cfg.Optimization.TrainSize, "unset keys keep defaults")
	assert.Equal(t, 40, cfg.Prompts.MaxSystemWords)
	assert.Equal(t, 10, cfg.Prompts.MinSystemWords)
	assert.Equal(t, WinnersBackendSQLite, cfg.Winners.Backend)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("llm:\n  providr: mock\n"), 0o644))
	_, err := Load(unknown)
	require.ErrorIs(t, err, ErrInvalidConfig)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("llm:\n  provider: google\n"), 0o644))
	_, err = Load(invalid)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg, err := Load(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "overrides",
			env: map[string]string{
				EnvProvider:       "ollama",
				EnvModel:          "qwen3:0.6b",
				EnvBaseURL:        "http://gpu:11434",
				EnvSeed:           "42",
				EnvMaxMetricCalls: "30",
				EnvTaskLM:         "ollama/qwen3",
				EnvReflectionLM:   "openai/gpt-5.2-mini",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "ollama", c.LLM.Provider)
				assert.Equal(t, "qwen3:0.6b", c.LLM.Model)
				assert.Equal(t, "http://gpu:11434", c.LLM.BaseURL)
				assert.Equal(t, 42, c.Optimization.Seed)
				assert.Equal(t, 30, c.Optimization.MaxMetricCalls)
				assert.Equal(t, "ollama/qwen3", c.Optimization.TaskLM)
				assert.Equal(t, "openai/gpt-5.2-mini", c.Optimization.ReflectionLM)
			},
		},
		{
			name: "empty_values_ignored",
			env:  map[string]string{EnvModel: "", EnvSeed: ""},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "gpt-5.1-mini", c.LLM.Model)
				assert.Equal(t, DefaultSeed, c.Optimization.Seed)
			},
		},
		{
			name: "openai_key",
			env:  map[string]string{EnvOpenAIAPIKey: "sk-o", EnvAnthropicAPIKey: "sk-a"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "sk-o", c.LLM.APIKey)
			},
		},
		{
			name: "anthropic_key_follows_provider",
			env:  map[string]string{EnvProvider: "anthropic", EnvOpenAIAPIKey: "sk-o", EnvAnthropicAPIKey: "sk-a"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "sk-a", c.LLM.APIKey)
			},
		},
		{
			name:    "non_integer_seed",
			env:     map[string]string{EnvSeed: "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := applyEnv(cfg, envMap(tt.env))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "promptlab.yaml")
	require.NoError(t, WriteTemplate(path, false))

	require.ErrorIs(t, WriteTemplate(path, false), fs.ErrExist)
	require.NoError(t, WriteTemplate(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "api_key")

	for _, key := range []string{EnvProvider, EnvModel, EnvSeed, EnvMaxMetricCalls, EnvTaskLM, EnvReflectionLM} {
		t.Setenv(key, "")
	}
	cfg, err := Load(path)
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.Optimization, cfg.Optimization)
	assert.Equal(t, want.Prompts, cfg.Prompts)
	assert.Equal(t, want.Winners, cfg.Winners)
}
