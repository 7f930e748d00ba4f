package benchmark

import (
	"errors"

	"go.temporal.io/sdk/temporal"
)

// ErrNoVariants indicates that neither a recorded winner nor any competitor
// exists for the requested model and task.
var ErrNoVariants = errors.New("no prompt variants to benchmark")

// Application error types reported across the Temporal boundary.
const (
	ErrTypeValidation = "Validation"
	ErrTypeDataset    = "Dataset"
	ErrTypeStore      = "Store"
	ErrTypeNoVariants = "NoVariants"
)

// nonRetryable wraps an error as a Temporal non-retryable application error.
// Used for input and data problems that a retry cannot fix.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps an error as a retryable application error for transient
// storage and IO failures.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationErrorWithCause(msg, tag, cause)
}
