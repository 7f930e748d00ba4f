package winners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ahrav/promptlab/internal/domain"
)

// Competitors maps each task to the prompt variants benchmarked against the
// recorded winner.
type Competitors map[domain.TaskType][]domain.PromptVariant

// LoadCompetitors reads <dir>/competitors.json. A missing file yields an
// empty set; task names outside the known set are skipped.
func LoadCompetitors(dir string) (Competitors, error) {
	data, err := os.ReadFile(filepath.Join(dir, competitorsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Competitors{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read competitors: %w", err)
	}

	var raw map[string][]domain.PromptVariant
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode competitors: %w", err)
	}

	out := make(Competitors, len(raw))
	for name, variants := range raw {
		task := domain.TaskType(name)
		if !task.Valid() {
			continue
		}
		out[task] = variants
	}
	return out, nil
}

// Variants returns the recorded winner for model and task, if any, followed
// by the task's competitors. The winner always comes first.
func Variants(
	ctx context.Context,
	store Store,
	competitors Competitors,
	model string,
	task domain.TaskType,
) ([]domain.PromptVariant, error) {
	var out []domain.PromptVariant

	if store != nil {
		w, found, err := store.Get(ctx, model, task)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, domain.PromptVariant{
				System:   w.SystemPrompt,
				User:     w.UserPrompt,
				Thinking: w.Thinking,
			})
		}
	}

	return append(out, competitors[task]...), nil
}
