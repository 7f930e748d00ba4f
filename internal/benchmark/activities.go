// Package benchmark compares prompt variants for a model and task on the
// validation split and records the best one as the winner. The comparison runs
// as Temporal activities; the orchestrating workflow lives in
// internal/workflow.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ahrav/promptlab/internal/dataset"
	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/llm"
	"github.com/ahrav/promptlab/internal/optim"
	"github.com/ahrav/promptlab/internal/scoring"
	"github.com/ahrav/promptlab/internal/winners"
	pkgactivity "github.com/ahrav/promptlab/pkg/activity"
)

// ValidationSplit is the dataset split variants are scored on.
const ValidationSplit = "val"

// Event types emitted by the benchmark activities.
const (
	EventVariantEvaluated = "benchmark.variant_evaluated"
	EventWinnerRecorded   = "benchmark.winner_recorded"
)

const eventSource = "benchmark"

// Loader supplies dataset examples.
type Loader interface {
	Load(ctx context.Context, task domain.TaskType, split string, size int) ([]domain.DatasetExample, error)
}

// Config tunes variant evaluation.
type Config struct {
	// Concurrency bounds in-flight completions per variant.
	Concurrency int
}

// Activities runs benchmark steps inside a Temporal worker.
type Activities struct {
	pkgactivity.BaseActivities

	completer   llm.Completer
	loader      Loader
	store       winners.Store
	competitors winners.Competitors
	metrics     *optim.Metrics
	cfg         Config
}

// NewActivities wires the benchmark activities. metrics may be nil.
func NewActivities(
	base pkgactivity.BaseActivities,
	completer llm.Completer,
	loader Loader,
	store winners.Store,
	competitors winners.Competitors,
	metrics *optim.Metrics,
	cfg Config,
) *Activities {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = optim.DefaultConcurrency
	}
	return &Activities{
		BaseActivities: base,
		completer:      completer,
		loader:         loader,
		store:          store,
		competitors:    competitors,
		metrics:        metrics,
		cfg:            cfg,
	}
}

// ListVariants returns the recorded winner, if any, followed by the task's
// competitors. An empty list is a non-retryable ErrNoVariants.
func (a *Activities) ListVariants(ctx context.Context, input ListVariantsInput) ([]domain.PromptVariant, error) {
	if err := validateInput(&input, input.Task); err != nil {
		return nil, nonRetryable(ErrTypeValidation, err, "invalid list variants input")
	}

	variants, err := winners.Variants(ctx, a.store, a.competitors, input.Model, input.Task)
	if err != nil {
		return nil, retryable(ErrTypeStore, err, "read recorded winner")
	}
	if len(variants) == 0 {
		return nil, nonRetryable(ErrTypeNoVariants, ErrNoVariants,
			fmt.Sprintf("no variants for %s on %s", input.Task, input.Model))
	}

	pkgactivity.SafeLog(ctx, "Listed benchmark variants",
		"model", input.Model,
		"task", input.Task,
		"variants", len(variants))
	return variants, nil
}

// EvaluateVariant scores one variant on the validation split. Length
// constraints are not applied, so variants compete on output quality alone.
// Completion failures are scored as zero by the adapter and never fail the
// activity; only dataset problems do.
func (a *Activities) EvaluateVariant(ctx context.Context, input EvaluateVariantInput) (VariantResult, error) {
	if err := validateInput(&input, input.Task); err != nil {
		return VariantResult{}, nonRetryable(ErrTypeValidation, err, "invalid evaluate variant input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting EvaluateVariant activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"model", input.Model,
		"task", input.Task,
		"variant", input.Index)

	examples, err := a.loader.Load(ctx, input.Task, ValidationSplit, input.ValSize)
	if err != nil {
		return VariantResult{}, classifyLoadError(err)
	}
	if len(examples) == 0 {
		return VariantResult{}, nonRetryable(ErrTypeDataset, dataset.ErrEmptyDataset, "validation split is empty")
	}

	adapter, err := optim.New(input.Task, a.completer,
		optim.WithModel(input.Model),
		optim.WithConstraints(domain.PromptConstraints{}),
		optim.WithThinking(input.Variant.Thinking),
		optim.WithConcurrency(a.cfg.Concurrency),
		optim.WithMetrics(a.metrics),
	)
	if err != nil {
		return VariantResult{}, nonRetryable(ErrTypeValidation, err, "build adapter")
	}

	a.RecordHeartbeat(ctx, fmt.Sprintf("evaluating variant %d on %d examples", input.Index, len(examples)))
	batch := adapter.Evaluate(ctx, examples, input.Variant.Candidate().Components(), true)

	results := make([]domain.EvaluationResult, len(batch.Trajectories))
	for i, tr := range batch.Trajectories {
		results[i] = tr.Result()
	}
	summary := scoring.Aggregate(results)

	result := VariantResult{
		Index:          input.Index,
		Variant:        input.Variant,
		MeanScore:      summary.MeanScore,
		FormatPassRate: summary.FormatPassRate,
		Examples:       summary.Count,
	}

	pkgactivity.SafeLog(ctx, "Variant evaluated",
		"model", input.Model,
		"task", input.Task,
		"variant", input.Index,
		"mean_score", result.MeanScore,
		"format_pass_rate", result.FormatPassRate)

	a.Emit(ctx, EventVariantEvaluated, eventSource,
		string(input.Task)+"/"+strconv.Itoa(input.Index), variantEvent{
			Model:  input.Model,
			Task:   input.Task,
			Result: result,
		})

	return result, nil
}

// SaveWinner records the variant in input as the winner for its model and task.
func (a *Activities) SaveWinner(ctx context.Context, input SaveWinnerInput) error {
	if err := validateInput(&input, input.Task); err != nil {
		return nonRetryable(ErrTypeValidation, err, "invalid save winner input")
	}

	w := domain.Winner{
		SystemPrompt:   input.Result.Variant.System,
		UserPrompt:     input.Result.Variant.User,
		Score:          input.Result.MeanScore,
		FormatPassRate: input.Result.FormatPassRate,
		BenchmarkedAt:  input.BenchmarkedAt,
		Thinking:       input.Result.Variant.Thinking,
	}

	if err := a.store.Save(ctx, input.Model, input.Task, w); err != nil {
		if errors.Is(err, winners.ErrInvalidWinner) {
			return nonRetryable(ErrTypeValidation, err, "invalid winner")
		}
		return retryable(ErrTypeStore, err, "save winner")
	}

	pkgactivity.SafeLog(ctx, "Winner recorded",
		"model", input.Model,
		"task", input.Task,
		"variant", input.Result.Index,
		"score", w.Score)

	a.Emit(ctx, EventWinnerRecorded, eventSource, string(input.Task), variantEvent{
		Model:  input.Model,
		Task:   input.Task,
		Result: input.Result,
	})
	return nil
}

type variantEvent struct {
	Model  string          `json:"model"`
	Task   domain.TaskType `json:"task"`
	Result VariantResult   `json:"result"`
}

func classifyLoadError(err error) error {
	switch {
	case errors.Is(err, dataset.ErrNotFound),
		errors.Is(err, dataset.ErrEmptyDataset),
		errors.Is(err, domain.ErrInvalidExample),
		errors.Is(err, domain.ErrUnknownTask):
		return nonRetryable(ErrTypeDataset, err, "load validation split")
	default:
		return retryable(ErrTypeDataset, err, "load validation split")
	}
}
