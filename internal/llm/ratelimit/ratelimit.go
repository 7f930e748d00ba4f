// Package ratelimit provides client-side token-bucket throttling for completion
// requests. Each model gets its own bucket. Requests wait for a token until
// their context ends; nothing is retried.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/ahrav/promptlab/internal/llm"
)

// ErrInvalidConfig indicates rate limit settings that fail validation.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// DefaultCleanupInterval is how often idle buckets are swept when
// Config.CleanupInterval is zero. A bucket idle for a full interval is dropped.
const DefaultCleanupInterval = 10 * time.Minute

// Config sets the token bucket for each model.
type Config struct {
	// RequestsPerSecond is the sustained request rate per model.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`

	// Burst is the number of requests allowed back to back.
	Burst int `yaml:"burst" validate:"min=1"`

	// CleanupInterval is the sweep period and idle lifetime of a bucket.
	// Zero uses DefaultCleanupInterval.
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"min=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// timedLimiter tracks when a bucket was last used so idle buckets can be dropped.
type timedLimiter struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// Limiter holds one token bucket per key.
type Limiter struct {
	cfg Config

	mu       sync.RWMutex
	limiters map[string]*timedLimiter

	waits    atomic.Int64
	rejected atomic.Int64
	waited   atomic.Int64 // nanoseconds

	logger *slog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New validates cfg and returns a Limiter with its idle-bucket sweeper
// running. Callers must Close the limiter to stop the sweeper.
func New(cfg Config, logger *slog.Logger) (*Limiter, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	l := &Limiter{
		cfg:      cfg,
		limiters: make(map[string]*timedLimiter),
		logger:   logger.With("component", "ratelimit"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l, nil
}

// Close stops the sweeper and logs the final counters. It is safe to call
// more than once.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
		<-l.done
		st := l.Stats()
		l.logger.Info("rate limiter stopped",
			"limiters", st.Limiters,
			"waits", st.Waits,
			"rejected", st.Rejected,
			"total_wait", st.TotalWait)
	})
	return nil
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			removed := l.CleanupStale(now.Add(-l.cfg.CleanupInterval))
			st := l.Stats()
			l.logger.Debug("rate limit buckets swept",
				"removed", removed,
				"limiters", st.Limiters,
				"waits", st.Waits,
				"rejected", st.Rejected,
				"total_wait", st.TotalWait)
		case <-l.stop:
			return
		}
	}
}

// Middleware throttles completions per model.
func (l *Limiter) Middleware() llm.Middleware {
	return func(next llm.Completer) llm.Completer {
		return llm.CompleterFunc(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			if err := l.Wait(ctx, req.Model); err != nil {
				return llm.CompletionResponse{}, err
			}
			return next.Complete(ctx, req)
		})
	}
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	start := time.Now()
	err := l.getOrCreateLimiter(key).Wait(ctx)
	elapsed := time.Since(start)

	l.waits.Add(1)
	l.waited.Add(int64(elapsed))
	if err != nil {
		l.rejected.Add(1)
		l.logger.WarnContext(ctx, "rate limit wait aborted", "key", key, "error", err)
		return fmt.Errorf("rate limit wait for %s: %w", key, err)
	}
	return nil
}

// getOrCreateLimiter returns the bucket for key, creating it on first use.
// Double-checked locking keeps the common path on the read lock.
func (l *Limiter) getOrCreateLimiter(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	l.mu.RLock()
	if tl, ok := l.limiters[key]; ok {
		tl.lastUsed.Store(now)
		l.mu.RUnlock()
		return tl.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if tl, ok := l.limiters[key]; ok {
		tl.lastUsed.Store(now)
		return tl.limiter
	}

	tl := &timedLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
	tl.lastUsed.Store(now)
	l.limiters[key] = tl
	return tl.limiter
}

// CleanupStale drops buckets unused since before and returns how many were removed.
func (l *Limiter) CleanupStale(before time.Time) int {
	cutoff := before.UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int
	for key, tl := range l.limiters {
		if tl.lastUsed.Load() < cutoff {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}
