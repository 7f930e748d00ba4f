package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/promptlab/internal/llm"
)

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero_rate", cfg: Config{RequestsPerSecond: 0, Burst: 1}},
		{name: "negative_rate", cfg: Config{RequestsPerSecond: -1, Burst: 1}},
		{name: "zero_burst", cfg: Config{RequestsPerSecond: 1, Burst: 0}},
		{name: "negative_cleanup", cfg: Config{RequestsPerSecond: 1, Burst: 1, CleanupInterval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWaitHonorsBurstAndDeadline(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 0.001, Burst: 2}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "m"))
	require.NoError(t, l.Wait(ctx, "m"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(short, "m"))

	// Buckets are per key.
	require.NoError(t, l.Wait(ctx, "other"))

	stats := l.Stats()
	assert.Equal(t, 2, stats.Limiters)
	assert.Equal(t, int64(4), stats.Waits)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestMiddleware(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 0.001, Burst: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	var calls atomic.Int32
	next := llm.CompleterFunc(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		calls.Add(1)
		return llm.CompletionResponse{Text: "ok", Model: req.Model}, nil
	})
	c := llm.Chain(next, l.Middleware())

	resp, err := c.Complete(context.Background(), llm.CompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, llm.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "throttled request must not reach the provider")
}

func TestCleanupStale(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 10, Burst: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.Wait(context.Background(), "a"))
	require.NoError(t, l.Wait(context.Background(), "b"))

	assert.Zero(t, l.CleanupStale(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, l.CleanupStale(time.Now().Add(time.Hour)))
	assert.Zero(t, l.Stats().Limiters)
}

func TestSweeperDropsIdleBuckets(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 10, Burst: 1, CleanupInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.Wait(context.Background(), "idle"))
	require.Equal(t, 1, l.Stats().Limiters)

	assert.Eventually(t, func() bool { return l.Stats().Limiters == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), l.Stats().Waits)
}

func TestCloseIsIdempotent(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 10, Burst: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCleanupInterval, l.cfg.CleanupInterval)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	select {
	case <-l.done:
	default:
		t.Fatal("sweeper still running after Close")
	}
}
