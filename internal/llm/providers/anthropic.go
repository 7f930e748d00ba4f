package providers

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/promptlab/internal/llm"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Anthropic completes through the Messages API.
type Anthropic struct {
	opts    Options
	baseURL string
}

// NewAnthropic builds an Anthropic provider. An API key is required.
func NewAnthropic(opts Options) (*Anthropic, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderAnthropic, llm.ErrMissingAPIKey)
	}
	base := defaultAnthropicBaseURL
	if opts.BaseURL != "" {
		base = strings.TrimSuffix(opts.BaseURL, "/")
	}
	opts.HTTPClient = opts.httpClient()
	return &Anthropic{opts: opts, baseURL: base}, nil
}

// Complete implements llm.Completer. The reply text is the concatenation of
// all text blocks.
func (a *Anthropic) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "Anthropic.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", req.Model))

	payload := anthropicRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         a.opts.APIKey,
		"anthropic-version": anthropicAPIVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.opts.HTTPClient, ProviderAnthropic, a.baseURL+"/v1/messages", headers, payload, &resp); err != nil {
		return llm.CompletionResponse{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	span.SetAttributes(attribute.Int("llm.tokens_used", tokens))

	return llm.CompletionResponse{Text: text.String(), TokensUsed: tokens, Model: req.Model}, nil
}
