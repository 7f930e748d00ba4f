package providers

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/promptlab/internal/llm"
)

// DefaultOllamaBaseURL is the address of a locally running Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

type ollamaMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Think    bool            `json:"think"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	EvalCount       int           `json:"eval_count"`
	PromptEvalCount int           `json:"prompt_eval_count"`
}

// Ollama completes through a local Ollama server's chat endpoint.
type Ollama struct {
	opts    Options
	baseURL string
}

// NewOllama builds an Ollama provider. No credentials are needed.
func NewOllama(opts Options) *Ollama {
	base := DefaultOllamaBaseURL
	if opts.BaseURL != "" {
		base = strings.TrimSuffix(opts.BaseURL, "/")
	}
	opts.HTTPClient = opts.httpClient()
	return &Ollama{opts: opts, baseURL: base}
}

// Complete implements llm.Completer. Thinking models that put their whole
// answer in the thinking field get that text back when content is empty.
func (o *Ollama) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "Ollama.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Bool("llm.thinking", req.Thinking),
	)

	payload := ollamaChatRequest{
		Model: req.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Think:   req.Thinking,
		Options: ollamaOptions{NumPredict: req.MaxTokens, Temperature: req.Temperature},
	}

	var resp ollamaChatResponse
	if err := postJSON(ctx, o.opts.HTTPClient, ProviderOllama, o.baseURL+"/api/chat", nil, payload, &resp); err != nil {
		return llm.CompletionResponse{}, err
	}

	text := resp.Message.Content
	if text == "" {
		text = resp.Message.Thinking
	}
	tokens := resp.EvalCount + resp.PromptEvalCount
	span.SetAttributes(attribute.Int("llm.tokens_used", tokens))

	return llm.CompletionResponse{Text: text, TokensUsed: tokens, Model: req.Model}, nil
}
