package candidate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/promptlab/internal/domain"
)

// DefaultModel is the model whose recorded winners seed optimization when no
// model is configured.
const DefaultModel = "qwen3:0.6b"

var fallbackPrompts = map[domain.TaskType]domain.PromptCandidate{
	domain.TaskRewriteFriendly: {
		SystemPrompt: "Make the text more polite and neutral. Output only the result.",
		UserPrompt:   "Make friendly: {text}",
	},
	domain.TaskRewriteConcise: {
		SystemPrompt: "Shorten the text. Remove filler words. Output only the result.",
		UserPrompt:   "Make concise: {text}",
	},
	domain.TaskComplete: {
		SystemPrompt: "Continue the text naturally. Output only the continuation.",
		UserPrompt:   "{text}",
	},
	domain.TaskSummarize: {
		SystemPrompt: "Summarize in 1-2 sentences. Be direct and factual.",
		UserPrompt:   "Summarize:\n{text}",
	},
	domain.TaskExplain: {
		SystemPrompt: "Explain in 1-2 sentences. No preamble.",
		UserPrompt:   "{text} means:",
	},
}

// Fallback returns the built-in seed prompt for task.
func Fallback(task domain.TaskType) (domain.PromptCandidate, bool) {
	c, ok := fallbackPrompts[task]
	return c, ok
}

// WinnerStore provides read access to recorded winning prompts.
// Implementations normalize the model id themselves.
type WinnerStore interface {
	Get(ctx context.Context, model string, task domain.TaskType) (domain.Winner, bool, error)
}

// Seeder chooses the starting candidate for an optimization run: the recorded
// winner for the model and task if one exists, otherwise the fallback table.
type Seeder struct {
	store  WinnerStore
	logger *slog.Logger
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithSeederLogger sets the logger used to report store failures.
func WithSeederLogger(l *slog.Logger) SeederOption {
	return func(s *Seeder) { s.logger = l }
}

// NewSeeder creates a Seeder reading from store. A nil store always yields
// the fallback table.
func NewSeeder(store WinnerStore, opts ...SeederOption) *Seeder {
	s := &Seeder{
		store:  store,
		logger: slog.Default().With("component", "seeder"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed returns the seed candidate for task and model. An empty model means
// DefaultModel. Store errors are logged and the fallback is used; only an
// unknown task is an error.
func (s *Seeder) Seed(ctx context.Context, task domain.TaskType, model string) (domain.PromptCandidate, error) {
	fallback, ok := Fallback(task)
	if !ok {
		return domain.PromptCandidate{}, fmt.Errorf("no seed prompt: %w: %q", domain.ErrUnknownTask, task)
	}
	if model == "" {
		model = DefaultModel
	}
	if s.store == nil {
		return fallback, nil
	}

	w, found, err := s.store.Get(ctx, model, task)
	if err != nil {
		s.logger.Warn("winner lookup failed, using fallback seed",
			"task", task, "model", model, "error", err)
		return fallback, nil
	}
	if !found {
		return fallback, nil
	}
	return w.Candidate(), nil
}
