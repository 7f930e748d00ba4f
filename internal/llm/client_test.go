package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCompleter() Completer {
	return CompleterFunc(func(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{Text: "echo: " + req.UserPrompt, TokensUsed: 3, Model: req.Model}, nil
	})
}

func validRequest() CompletionRequest {
	return CompletionRequest{
		Model:        "qwen3:0.6b",
		SystemPrompt: "Be polite.",
		UserPrompt:   "Make friendly: this is dumb",
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Completer) Completer {
			return CompleterFunc(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				order = append(order, name)
				return next.Complete(ctx, req)
			})
		}
	}

	c := Chain(echoCompleter(), tag("outer"), tag("inner"))
	_, err := c.Complete(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestValidationMiddleware(t *testing.T) {
	c := Chain(echoCompleter(), NewValidationMiddleware())

	tests := []struct {
		name    string
		mutate  func(*CompletionRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(*CompletionRequest) {}},
		{name: "missing_model", mutate: func(r *CompletionRequest) { r.Model = "" }, wantErr: true},
		{name: "zero_tokens", mutate: func(r *CompletionRequest) { r.MaxTokens = 0 }, wantErr: true},
		{name: "temperature_too_high", mutate: func(r *CompletionRequest) { r.Temperature = 3 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := c.Complete(context.Background(), req)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := CompleterFunc(func(ctx context.Context, _ CompletionRequest) (CompletionResponse, error) {
		select {
		case <-ctx.Done():
			return CompletionResponse{}, ctx.Err()
		case <-time.After(time.Second):
			return CompletionResponse{Text: "late"}, nil
		}
	})

	_, err := Chain(slow, NewTimeoutMiddleware(10*time.Millisecond)).Complete(context.Background(), validRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	fast := Chain(echoCompleter(), NewTimeoutMiddleware(0))
	_, err = fast.Complete(context.Background(), validRequest())
	require.NoError(t, err)
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggingMiddleware(t *testing.T) {
	newLogger := func(buf *bytes.Buffer) *slog.Logger {
		return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	t.Run("logs_prompts_and_reuses_request_id", func(t *testing.T) {
		var buf bytes.Buffer
		c := Chain(echoCompleter(), NewLoggingMiddleware("mock", newLogger(&buf), false))

		ctx := WithRequestID(context.Background(), "req-1")
		_, err := c.Complete(ctx, validRequest())
		require.NoError(t, err)

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		assert.Equal(t, "LLM request started", lines[0]["msg"])
		assert.Equal(t, "req-1", lines[0]["request_id"])
		assert.Equal(t, "Make friendly: this is dumb", lines[0]["user_prompt"])
		assert.Equal(t, "LLM request completed", lines[1]["msg"])
		assert.Equal(t, "echo: Make friendly: this is dumb", lines[1]["response_preview"])
	})

	t.Run("redacts_and_generates_request_id", func(t *testing.T) {
		var buf bytes.Buffer
		var seen string
		next := CompleterFunc(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			seen, _ = RequestIDFromContext(ctx)
			return echoCompleter().Complete(ctx, req)
		})
		c := Chain(next, NewLoggingMiddleware("mock", newLogger(&buf), true))

		_, err := c.Complete(context.Background(), validRequest())
		require.NoError(t, err)

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, lines[0]["request_id"])
		assert.NotContains(t, lines[0], "user_prompt")
		assert.InDelta(t, float64(len(validRequest().UserPrompt)), lines[0]["user_prompt_length"], 0)
		assert.NotContains(t, lines[1], "response_preview")
	})

	t.Run("logs_failures", func(t *testing.T) {
		var buf bytes.Buffer
		failing := CompleterFunc(func(context.Context, CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{}, &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}
		})
		c := Chain(failing, NewLoggingMiddleware("openai", newLogger(&buf), false))

		_, err := c.Complete(context.Background(), validRequest())
		require.Error(t, err)

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		assert.Equal(t, "ERROR", lines[1]["level"])
		assert.Equal(t, "openai error 500: boom", lines[1]["error"])
	})
}

func TestProviderError(t *testing.T) {
	tests := []struct {
		err       *ProviderError
		msg       string
		retryable bool
	}{
		{err: &ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down", Code: "rate_limit"}, msg: "openai error 429 (rate_limit): slow down", retryable: true},
		{err: &ProviderError{Provider: "anthropic", StatusCode: 503, Message: "overloaded"}, msg: "anthropic error 503: overloaded", retryable: true},
		{err: &ProviderError{Provider: "ollama", StatusCode: 404, Message: "model not found"}, msg: "ollama error 404: model not found"},
		{err: &ProviderError{Provider: "openai", StatusCode: 401, Message: "bad key"}, msg: "openai error 401: bad key"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.msg, tt.err.Error())
		assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
	}

	assert.False(t, IsRetryable(ErrInvalidRequest))
	assert.False(t, IsRetryable(fmt.Errorf("openai: %w", ErrMissingAPIKey)))
	assert.True(t, IsRetryable(errors.New("connection reset")))
}
