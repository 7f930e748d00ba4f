// Package providers implements llm.Completer for each supported backend:
// a deterministic mock, OpenAI, Anthropic and a local Ollama server.
package providers

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ahrav/promptlab/internal/llm"
)

// Supported provider identifiers. These must match the names used in configuration.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultSeed seeds the mock provider when none is configured.
const DefaultSeed = 1337

// defaultHTTPTimeout bounds hosted API calls when no client is supplied.
const defaultHTTPTimeout = 5 * time.Minute

var tracer = otel.Tracer("promptlab/llm/providers")

// Options configures a provider. Fields a provider does not use are ignored.
type Options struct {
	// APIKey authenticates hosted providers. Required for openai and anthropic.
	APIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Seed drives the mock provider's deterministic output.
	Seed int
	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// Names lists the supported provider identifiers in sorted order.
func Names() []string {
	names := []string{ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderOllama}
	slices.Sort(names)
	return names
}

// New returns the Completer registered under name.
func New(name string, opts Options) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderMock:
		return NewMock(opts.Seed), nil
	case ProviderOpenAI:
		return NewOpenAI(opts)
	case ProviderAnthropic:
		return NewAnthropic(opts)
	case ProviderOllama:
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", llm.ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
}
