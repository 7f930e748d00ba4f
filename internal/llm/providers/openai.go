package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ahrav/promptlab/internal/llm"
)

// minReasoningCompletionTokens is the floor for gpt-5 completions, whose hidden
// reasoning tokens count against the same budget as the visible answer.
const minReasoningCompletionTokens = 1000

// OpenAI completes through the chat completions API, including
// OpenAI-compatible servers reached via Options.BaseURL.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds an OpenAI provider. An API key is required.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderOpenAI, llm.ErrMissingAPIKey)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	cfg.HTTPClient = opts.httpClient()

	return &OpenAI{client: openai.NewClientWithConfig(cfg)}, nil
}

// isReasoningModel reports models that reject max_tokens and temperature.
func isReasoningModel(model string) bool { return strings.HasPrefix(model, "gpt-5") }

func buildOpenAIRequest(req llm.CompletionRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}

	if isReasoningModel(req.Model) {
		out.MaxCompletionTokens = max(req.MaxTokens, minReasoningCompletionTokens)
		return out
	}

	out.MaxTokens = req.MaxTokens
	out.Temperature = float32(req.Temperature)
	if out.Temperature == 0 {
		// The client drops a zero temperature from the payload, which the API
		// reads as its default of 1.
		out.Temperature = math.SmallestNonzeroFloat32
	}
	return out
}

// Complete implements llm.Completer.
func (o *OpenAI) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", req.Model))

	resp, err := o.client.CreateChatCompletion(ctx, buildOpenAIRequest(req))
	if err != nil {
		err = convertOpenAIError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.CompletionResponse{}, err
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	span.SetAttributes(attribute.Int("llm.tokens_used", resp.Usage.TotalTokens))

	return llm.CompletionResponse{
		Text:       text,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      req.Model,
	}, nil
}

// convertOpenAIError maps client errors carrying an HTTP status onto
// llm.ProviderError so retry classification is uniform across providers.
func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &llm.ProviderError{
			Provider:   ProviderOpenAI,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       apiErr.Type,
		}
		if code, ok := apiErr.Code.(string); ok && code != "" {
			pe.Code = code
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &llm.ProviderError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	return fmt.Errorf("%s: %w", ProviderOpenAI, err)
}
