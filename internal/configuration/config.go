// Package configuration defines promptlab's settings, their defaults, and how
// they are loaded from a YAML file and the environment.
package configuration

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/llm/ratelimit"
)

// ErrInvalidConfig indicates settings that fail validation or cannot be parsed.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	LLM           LLMConfig                `yaml:"llm"`
	Optimization  OptimizationConfig       `yaml:"optimization"`
	Datasets      DatasetConfig            `yaml:"datasets"`
	Prompts       domain.PromptConstraints `yaml:"prompts"`
	Winners       WinnersConfig            `yaml:"winners"`
	RateLimit     RateLimitConfig          `yaml:"rate_limit"`
	Observability ObservabilityConfig      `yaml:"observability"`
	Temporal      TemporalConfig           `yaml:"temporal"`
	OutputDir     string                   `yaml:"output_dir" validate:"required"`
}

// LLMConfig selects the completion provider and model.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"oneof=mock openai anthropic ollama"`
	Model    string `yaml:"model"    validate:"required"`
	BaseURL  string `yaml:"base_url"`

	// APIKey is read from the environment only and never written to disk.
	APIKey string `yaml:"-"`

	// Timeout bounds each completion. Zero leaves requests unbounded.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// OptimizationConfig controls how candidates are evaluated.
type OptimizationConfig struct {
	MaxMetricCalls int    `yaml:"max_metric_calls" validate:"min=1"`
	Seed           int    `yaml:"seed"`
	TrainSize      int    `yaml:"train_size"       validate:"min=1"`
	ValSize        int    `yaml:"val_size"         validate:"min=1"`
	Concurrency    int    `yaml:"concurrency"      validate:"min=1"`
	TaskLM         string `yaml:"task_lm"`
	ReflectionLM   string `yaml:"reflection_lm"`
}

// DatasetConfig locates the JSONL dataset files.
type DatasetConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// Winners store backends.
const (
	WinnersBackendJSON   = "json"
	WinnersBackendSQLite = "sqlite"
)

// WinnersConfig selects where winning prompts are stored.
type WinnersConfig struct {
	Backend    string `yaml:"backend"     validate:"oneof=json sqlite"`
	Dir        string `yaml:"dir"         validate:"required_if=Backend json"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
}

// RateLimitConfig enables client-side throttling of completions per model.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int           `yaml:"burst"               validate:"min=1"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"    validate:"min=0"`
}

// Limiter returns the limiter settings.
func (r RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: r.RequestsPerSecond,
		Burst:             r.Burst,
		CleanupInterval:   r.CleanupInterval,
	}
}

// ObservabilityConfig controls logging and metrics.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"       validate:"oneof=debug info warn error"`
	LogFormat      string `yaml:"log_format"      validate:"oneof=json text"`
	RedactPrompts  bool   `yaml:"redact_prompts"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"    validate:"required_if=MetricsEnabled true"`
}

// TemporalConfig locates the Temporal frontend used for benchmarking.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"  validate:"required"`
	Namespace string `yaml:"namespace"  validate:"required"`
	TaskQueue string `yaml:"task_queue" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section, including the prompt constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
