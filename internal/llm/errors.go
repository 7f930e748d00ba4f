package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider selection and responses.
var (
	// ErrUnknownProvider indicates a provider name with no implementation.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingAPIKey indicates a hosted provider configured without credentials.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidRequest indicates a completion request that fails validation.
	ErrInvalidRequest = errors.New("invalid completion request")
)

// ProviderError is a non-success reply from a provider's HTTP API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Code       string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether a later attempt could succeed: rate limits,
// timeouts and server errors. The engine itself never retries; callers at the
// workflow boundary use this to pick a retry policy.
func (e *ProviderError) IsRetryable() bool {
	switch {
	case e.StatusCode == 429, e.StatusCode == 408:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err wraps a retryable ProviderError.
// Errors of any other kind are treated as transient.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return !errors.Is(err, ErrInvalidRequest) && !errors.Is(err, ErrMissingAPIKey)
}
