// Package winners persists the best prompt found for each model and task.
// Two backends are provided: one JSON document per model in a directory, and
// a single SQLite table. Both key records by the normalized model id.
package winners

import (
	"context"
	"errors"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
)

// ErrInvalidWinner indicates a winner that fails validation on save.
var ErrInvalidWinner = errors.New("invalid winner")

// Store reads and records winning prompts.
type Store interface {
	// Get returns the winner for model and task. found is false when none is recorded.
	Get(ctx context.Context, model string, task domain.TaskType) (w domain.Winner, found bool, err error)

	// Save records w as the winner for model and task, replacing any previous one.
	Save(ctx context.Context, model string, task domain.TaskType, w domain.Winner) error

	// ListModels returns the normalized ids of models with recorded winners.
	ListModels(ctx context.Context) ([]string, error)

	Close() error
}

// NormalizeModelID maps a model id to a filename-safe key: ':' and '/'
// become '-' and the result is lowercased.
func NormalizeModelID(model string) string {
	return strings.ToLower(strings.NewReplacer(":", "-", "/", "-").Replace(model))
}

func validateWinner(w *domain.Winner) error {
	if err := w.Validate(); err != nil {
		return errors.Join(ErrInvalidWinner, err)
	}
	return nil
}
