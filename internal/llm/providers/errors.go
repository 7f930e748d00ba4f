package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/promptlab/internal/llm"
)

// parseHTTPError converts a non-2xx reply into an llm.ProviderError. It
// understands the three error shapes in use:
//
//	{"error": {"type": "...", "message": "..."}}   anthropic, openai
//	{"error": "..."}                               ollama
//	{"type": "...", "message": "..."}
//
// Anything else is reported verbatim.
func parseHTTPError(provider string, statusCode int, body []byte) error {
	var nested struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return &llm.ProviderError{
			Provider:   provider,
			StatusCode: statusCode,
			Message:    nested.Error.Message,
			Code:       nested.Error.Type,
		}
	}

	var flat struct {
		Error   string `json:"error"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		switch {
		case flat.Error != "":
			return &llm.ProviderError{Provider: provider, StatusCode: statusCode, Message: flat.Error}
		case flat.Message != "":
			return &llm.ProviderError{Provider: provider, StatusCode: statusCode, Message: flat.Message, Code: flat.Type}
		}
	}

	return &llm.ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// postJSON sends payload to url and decodes a 200 reply into out.
func postJSON(
	ctx context.Context,
	client *http.Client,
	provider, url string,
	headers map[string]string,
	payload, out any,
) error {
	span := trace.SpanFromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", provider, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		perr := parseHTTPError(provider, resp.StatusCode, respBody)
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		return perr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", provider, err)
	}
	return nil
}
