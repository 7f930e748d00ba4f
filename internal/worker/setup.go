// Package worker provides initialization and setup utilities for the
// Temporal worker and the CLI. It builds the completion pipeline, stores and
// loaders from configuration so activity packages receive plain dependencies.
package worker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/promptlab/internal/configuration"
	"github.com/ahrav/promptlab/internal/dataset"
	"github.com/ahrav/promptlab/internal/llm"
	"github.com/ahrav/promptlab/internal/llm/providers"
	"github.com/ahrav/promptlab/internal/llm/ratelimit"
	"github.com/ahrav/promptlab/internal/optim"
	"github.com/ahrav/promptlab/internal/winners"
	"github.com/ahrav/promptlab/pkg/events"
)

// Pipeline is the configured completion stack. It owns the rate limiter's
// background sweeper, so callers Close it when done.
type Pipeline struct {
	llm.Completer
	limiter *ratelimit.Limiter
}

// Close stops the rate limiter, if one is configured.
func (p *Pipeline) Close() error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Close()
}

// InitializeCompleter builds the configured provider wrapped in the standard
// middleware stack, outermost first: validation, logging, rate limiting
// (when enabled) and the per-request timeout.
func InitializeCompleter(cfg *configuration.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}

	base, err := providers.New(cfg.LLM.Provider, providers.Options{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Seed:    cfg.Optimization.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion provider: %w", err)
	}

	p := &Pipeline{}
	mws := []llm.Middleware{
		llm.NewValidationMiddleware(),
		llm.NewLoggingMiddleware(cfg.LLM.Provider, logger, cfg.Observability.RedactPrompts),
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.RateLimit.Limiter(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		p.limiter = limiter
		mws = append(mws, limiter.Middleware())
	}
	if cfg.LLM.Timeout > 0 {
		mws = append(mws, llm.NewTimeoutMiddleware(cfg.LLM.Timeout))
	}

	p.Completer = llm.Chain(base, mws...)
	return p, nil
}

// InitializeWinnerStore opens the configured winners backend. The caller
// owns the returned store and must Close it.
func InitializeWinnerStore(cfg *configuration.Config) (winners.Store, error) {
	switch cfg.Winners.Backend {
	case "json":
		return winners.NewFileStore(cfg.Winners.Dir), nil
	case "sqlite":
		store, err := winners.NewSQLiteStore(cfg.Winners.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open winners database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: winners backend %q", configuration.ErrInvalidConfig, cfg.Winners.Backend)
	}
}

// InitializeLoader returns the JSONL dataset loader for the configured directory.
func InitializeLoader(cfg *configuration.Config, logger *slog.Logger) *dataset.JSONLLoader {
	return dataset.NewJSONLLoader(cfg.Datasets.Dir, logger)
}

// InitializeMetrics registers adapter metrics with reg. A nil registerer
// disables metrics.
func InitializeMetrics(reg prometheus.Registerer) *optim.Metrics {
	if reg == nil {
		return nil
	}
	return optim.NewMetrics(reg)
}

// InitializeEventSink returns the sink for benchmark lifecycle events.
// Events are written to the structured log.
func InitializeEventSink(logger *slog.Logger) events.EventSink {
	return events.NewLogSink(logger)
}

// Dependencies are the collaborators shared by the worker's activities.
type Dependencies struct {
	Completer   llm.Completer
	Loader      *dataset.JSONLLoader
	Store       winners.Store
	Competitors winners.Competitors
	Metrics     *optim.Metrics
	EventSink   events.EventSink
	Concurrency int
}

// Close releases the winners store and stops the completion pipeline.
func (d Dependencies) Close() error {
	var errs []error
	if c, ok := d.Completer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	return errors.Join(errs...)
}

// NewDependencies builds every worker dependency from cfg. Competitors are
// read from the JSON winners directory; the SQLite backend has none unless
// that directory also holds a competitors file.
func NewDependencies(cfg *configuration.Config, logger *slog.Logger, reg prometheus.Registerer) (Dependencies, error) {
	completer, err := InitializeCompleter(cfg, logger)
	if err != nil {
		return Dependencies{}, err
	}

	store, err := InitializeWinnerStore(cfg)
	if err != nil {
		return Dependencies{}, errors.Join(err, completer.Close())
	}

	competitors, err := winners.LoadCompetitors(cfg.Winners.Dir)
	if err != nil {
		return Dependencies{}, errors.Join(err, store.Close(), completer.Close())
	}

	return Dependencies{
		Completer:   completer,
		Loader:      InitializeLoader(cfg, logger),
		Store:       store,
		Competitors: competitors,
		Metrics:     InitializeMetrics(reg),
		EventSink:   InitializeEventSink(logger),
		Concurrency: cfg.Optimization.Concurrency,
	}, nil
}
