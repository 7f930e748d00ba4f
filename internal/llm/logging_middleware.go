package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// previewLength bounds the response text logged when prompts are not redacted.
const previewLength = 200

type requestIDKey struct{}

// WithRequestID attaches a request id that the logging middleware reuses
// instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// LoggingMiddleware logs the lifecycle of each completion with a request id,
// latency and token usage. Prompt and response text are replaced by their
// lengths when redaction is enabled.
type LoggingMiddleware struct {
	logger        *slog.Logger
	provider      string
	redactPrompts bool
}

// NewLoggingMiddleware creates request logging for provider. A nil logger
// uses slog.Default.
func NewLoggingMiddleware(provider string, logger *slog.Logger, redactPrompts bool) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	lm := &LoggingMiddleware{
		logger:        logger.With("component", "llm"),
		provider:      provider,
		redactPrompts: redactPrompts,
	}
	return lm.Middleware
}

// Middleware wraps next with request logging.
func (m *LoggingMiddleware) Middleware(next Completer) Completer {
	return CompleterFunc(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
		requestID, ok := RequestIDFromContext(ctx)
		if !ok {
			requestID = uuid.NewString()
			ctx = WithRequestID(ctx, requestID)
		}

		m.logRequest(ctx, req, requestID)

		start := time.Now()
		resp, err := next.Complete(ctx, req)
		duration := time.Since(start)

		if err != nil {
			m.logger.ErrorContext(ctx, "LLM request failed",
				"request_id", requestID,
				"provider", m.provider,
				"model", req.Model,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
			return resp, err
		}

		m.logResponse(ctx, req, resp, requestID, duration)
		return resp, nil
	})
}

func (m *LoggingMiddleware) logRequest(ctx context.Context, req CompletionRequest, requestID string) {
	fields := []any{
		"request_id", requestID,
		"provider", m.provider,
		"model", req.Model,
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
		"thinking", req.Thinking,
	}

	if m.redactPrompts {
		fields = append(fields,
			"system_prompt_length", len(req.SystemPrompt),
			"user_prompt_length", len(req.UserPrompt))
	} else {
		fields = append(fields,
			"system_prompt", req.SystemPrompt,
			"user_prompt", req.UserPrompt)
	}

	m.logger.DebugContext(ctx, "LLM request started", fields...)
}

func (m *LoggingMiddleware) logResponse(
	ctx context.Context,
	req CompletionRequest,
	resp CompletionResponse,
	requestID string,
	duration time.Duration,
) {
	fields := []any{
		"request_id", requestID,
		"provider", m.provider,
		"model", req.Model,
		"duration_ms", duration.Milliseconds(),
		"tokens_used", resp.TokensUsed,
	}

	if m.redactPrompts {
		fields = append(fields, "response_length", len(resp.Text))
	} else {
		preview := resp.Text
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		fields = append(fields, "response_preview", preview)
	}

	m.logger.DebugContext(ctx, "LLM request completed", fields...)
}
