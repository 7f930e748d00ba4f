package llm

import (
	"context"
	"time"
)

// NewValidationMiddleware rejects malformed requests before they reach a provider.
func NewValidationMiddleware() Middleware {
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			if err := req.Validate(); err != nil {
				return CompletionResponse{}, err
			}
			return next.Complete(ctx, req)
		})
	}
}

// NewTimeoutMiddleware bounds each completion by timeout. A non-positive
// timeout leaves the caller's deadline untouched.
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Completer) Completer {
		if timeout <= 0 {
			return next
		}
		return CompleterFunc(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next.Complete(ctx, req)
		})
	}
}
