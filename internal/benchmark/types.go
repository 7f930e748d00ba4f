package benchmark

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/promptlab/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request starts a benchmark of every known variant for one model and task.
type Request struct {
	Model string          `json:"model"    validate:"required"`
	Task  domain.TaskType `json:"task"     validate:"required"`

	// ValSize bounds the validation examples per variant. Zero uses every example.
	ValSize int `json:"val_size" validate:"min=0"`

	// ActivityTimeout bounds a single activity attempt. Zero uses the workflow default.
	ActivityTimeout time.Duration `json:"activity_timeout" validate:"min=0"`
}

// Validate checks the request fields and the task name.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !r.Task.Valid() {
		return domain.ErrUnknownTask
	}
	return nil
}

// ListVariantsInput selects the variants to benchmark.
type ListVariantsInput struct {
	Model string          `json:"model" validate:"required"`
	Task  domain.TaskType `json:"task"  validate:"required"`
}

// EvaluateVariantInput describes one variant evaluation.
type EvaluateVariantInput struct {
	Model   string               `json:"model"    validate:"required"`
	Task    domain.TaskType      `json:"task"     validate:"required"`
	Index   int                  `json:"index"    validate:"min=0"`
	Variant domain.PromptVariant `json:"variant"`
	ValSize int                  `json:"val_size" validate:"min=0"`
}

// VariantResult is the aggregate outcome of one variant on the validation split.
type VariantResult struct {
	Index          int                  `json:"index"`
	Variant        domain.PromptVariant `json:"variant"`
	MeanScore      float64              `json:"mean_score"`
	FormatPassRate float64              `json:"format_pass_rate"`
	Examples       int                  `json:"examples"`
}

// SaveWinnerInput records the best variant.
type SaveWinnerInput struct {
	Model         string          `json:"model"          validate:"required"`
	Task          domain.TaskType `json:"task"           validate:"required"`
	Result        VariantResult   `json:"result"`
	BenchmarkedAt time.Time       `json:"benchmarked_at" validate:"required"`
}

// Result is the benchmark outcome returned by the workflow.
type Result struct {
	Model   string          `json:"model"`
	Task    domain.TaskType `json:"task"`
	Results []VariantResult `json:"results"`
	Best    VariantResult   `json:"best"`
}

// Best returns the result with the highest mean score. Ties keep the earliest
// result, so a recorded winner listed first is only replaced by a strictly
// better variant. ok is false for an empty slice.
func Best(results []VariantResult) (best VariantResult, ok bool) {
	for i, r := range results {
		if i == 0 || r.MeanScore > best.MeanScore {
			best = r
		}
	}
	return best, len(results) > 0
}

func validateInput(v any, task domain.TaskType) error {
	if err := validate.Struct(v); err != nil {
		return err
	}
	if !task.Valid() {
		return domain.ErrUnknownTask
	}
	return nil
}
