package configuration

import (
	"github.com/ahrav/promptlab/internal/domain"
)

// Optimization defaults.
const (
	DefaultMaxMetricCalls = 150
	DefaultSeed           = 1337
	DefaultTrainSize      = 50
	DefaultValSize        = 20
	DefaultConcurrency    = 4
)

// Rate limiting defaults.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 20
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-5.1-mini",
		},
		Optimization: OptimizationConfig{
			MaxMetricCalls: DefaultMaxMetricCalls,
			Seed:           DefaultSeed,
			TrainSize:      DefaultTrainSize,
			ValSize:        DefaultValSize,
			Concurrency:    DefaultConcurrency,
			TaskLM:         "openai/gpt-5.1-mini",
			ReflectionLM:   "openai/gpt-5.2",
		},
		Datasets: DatasetConfig{Dir: ".cache/datasets"},
		Prompts:  domain.DefaultPromptConstraints(),
		Winners: WinnersConfig{
			Backend:    WinnersBackendJSON,
			Dir:        "prompts/winners",
			SQLitePath: "prompts/winners.db",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "text",
			MetricsAddr: ":9090",
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "promptlab",
		},
		OutputDir: "out",
	}
}
