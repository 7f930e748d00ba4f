// Package llm defines the completion contract the evaluation engine depends on
// and the middleware that wraps every provider: structured request logging and
// client-side rate limiting. Concrete providers live in llm/providers.
package llm

import "context"

// Default request parameters used by the optimization adapter.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.0
)

// CompletionRequest is a single system+user chat completion.
type CompletionRequest struct {
	Model        string  `json:"model"         validate:"required"`
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	MaxTokens    int     `json:"max_tokens"    validate:"min=1"`
	Temperature  float64 `json:"temperature"   validate:"min=0,max=2"`

	// Thinking asks reasoning-capable models to think before answering.
	// Providers without such a mode ignore it.
	Thinking bool `json:"thinking"`
}

// CompletionResponse is the normalized provider reply.
type CompletionResponse struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
}

// Completer produces a completion for a request.
// Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f(ctx, req)
}

// Middleware decorates a Completer.
type Middleware func(Completer) Completer

// Chain wraps c with middleware. The first middleware is the outermost.
func Chain(c Completer, mws ...Middleware) Completer {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
