package optim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/llm"
	"github.com/ahrav/promptlab/internal/scoring"
)

// Dataset splits.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// Loader supplies dataset examples for a task split.
type Loader interface {
	Load(ctx context.Context, task domain.TaskType, split string, size int) ([]domain.DatasetExample, error)
}

// Seeder supplies the starting candidate for a task and model.
type Seeder interface {
	Seed(ctx context.Context, task domain.TaskType, model string) (domain.PromptCandidate, error)
}

// RunnerConfig controls a seed evaluation run.
type RunnerConfig struct {
	Model   string
	Seed    int
	ValSize int

	// TrainSize is the number of training examples scored alongside the
	// validation split. Zero skips the training split.
	TrainSize int

	// MaxMetricCalls caps the examples scored per task. The validation split
	// is always scored in full; training examples use what remains. Zero
	// leaves the run uncapped.
	MaxMetricCalls int

	// ReflectionLM names the model the external search process reflects with.
	// It is recorded with the run and not called by the runner.
	ReflectionLM string

	Concurrency int
	Constraints domain.PromptConstraints
}

// TaskResult is the validation outcome for one task.
type TaskResult struct {
	Task           domain.TaskType
	Candidate      domain.PromptCandidate
	TrainScore     float64
	ValScore       float64
	FormatPassRate float64
	MetricCalls    int
}

// TaskPrompts is the prompt pair recorded for a task in the output document.
type TaskPrompts struct {
	System   string `json:"system"`
	User     string `json:"user"`
	Thinking *bool  `json:"thinking,omitempty"`
}

// TaskScores is the validation summary recorded for a task.
type TaskScores struct {
	ValScore       float64 `json:"val_score"`
	FormatPassRate float64 `json:"format_pass_rate"`
}

// OutputMeta describes how the output document was produced.
type OutputMeta struct {
	Seed           int                   `json:"seed"`
	Timestamp      string                `json:"timestamp"`
	Scores         map[string]TaskScores `json:"scores"`
	FormatPassRate map[string]float64    `json:"format_pass_rate"`
}

// Output is the per-model prompt document written by a run.
type Output struct {
	Model   string                 `json:"model"`
	Prompts map[string]TaskPrompts `json:"prompts"`
	Meta    OutputMeta             `json:"meta"`
}

// Runner evaluates each task's seed prompt on its validation split.
type Runner struct {
	completer llm.Completer
	loader    Loader
	seeder    Seeder
	cfg       RunnerConfig
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner builds a Runner. metrics and logger may be nil.
func NewRunner(
	completer llm.Completer,
	loader Loader,
	seeder Seeder,
	cfg RunnerConfig,
	metrics *Metrics,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Runner{
		completer: completer,
		loader:    loader,
		seeder:    seeder,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.With("component", "runner", "model", cfg.Model),
		now:       time.Now,
	}
}

// RunTask seeds task, scores the seed on the training and validation splits
// and reports the validation mean score and the fraction of validation
// examples with a positive score.
func (r *Runner) RunTask(ctx context.Context, task domain.TaskType) (TaskResult, error) {
	var train []domain.DatasetExample
	if r.cfg.TrainSize > 0 {
		var err error
		train, err = r.loader.Load(ctx, task, SplitTrain, r.cfg.TrainSize)
		if err != nil {
			return TaskResult{}, fmt.Errorf("load %s %s split: %w", task, SplitTrain, err)
		}
	}

	val, err := r.loader.Load(ctx, task, SplitVal, r.cfg.ValSize)
	if err != nil {
		return TaskResult{}, fmt.Errorf("load %s %s split: %w", task, SplitVal, err)
	}

	seed, err := r.seeder.Seed(ctx, task, r.cfg.Model)
	if err != nil {
		return TaskResult{}, fmt.Errorf("seed %s: %w", task, err)
	}

	adapter, err := New(task, r.completer,
		WithModel(r.cfg.Model),
		WithConstraints(r.cfg.Constraints),
		WithConcurrency(r.cfg.Concurrency),
		WithMetrics(r.metrics),
		WithLogger(r.logger),
	)
	if err != nil {
		return TaskResult{}, err
	}

	train = train[:r.trainBudget(len(train), len(val))]
	var trainScore float64
	if len(train) > 0 {
		trainBatch := adapter.Evaluate(ctx, train, seed.Components(), false)
		trainScore = scoring.Mean(trainBatch.Scores)
	}

	batch := adapter.Evaluate(ctx, val, seed.Components(), false)
	res := TaskResult{
		Task:           task,
		Candidate:      seed,
		TrainScore:     trainScore,
		ValScore:       scoring.Mean(batch.Scores),
		FormatPassRate: batch.ScoredFraction(),
		MetricCalls:    len(train) + batch.Len(),
	}

	r.logger.InfoContext(ctx, "task evaluated",
		"task", string(task),
		"train_size", len(train),
		"train_score", res.TrainScore,
		"val_size", len(val),
		"val_score", res.ValScore,
		"format_pass_rate", res.FormatPassRate,
	)
	return res, nil
}

// trainBudget returns how many of n training examples fit in the metric call
// cap after val validation examples.
func (r *Runner) trainBudget(n, val int) int {
	if r.cfg.MaxMetricCalls <= 0 {
		return n
	}
	return max(min(n, r.cfg.MaxMetricCalls-val), 0)
}

// Run evaluates every task in order and assembles the output document.
// It stops at the first task that fails.
func (r *Runner) Run(ctx context.Context, tasks []domain.TaskType) (Output, error) {
	r.logger.InfoContext(ctx, "run started",
		"tasks", len(tasks),
		"seed", r.cfg.Seed,
		"train_size", r.cfg.TrainSize,
		"val_size", r.cfg.ValSize,
		"max_metric_calls", r.cfg.MaxMetricCalls,
		"reflection_lm", r.cfg.ReflectionLM,
	)

	out := Output{
		Model:   r.cfg.Model,
		Prompts: make(map[string]TaskPrompts, len(tasks)),
		Meta: OutputMeta{
			Seed:           r.cfg.Seed,
			Scores:         make(map[string]TaskScores, len(tasks)),
			FormatPassRate: make(map[string]float64, len(tasks)),
		},
	}

	for _, task := range tasks {
		res, err := r.RunTask(ctx, task)
		if err != nil {
			return Output{}, err
		}

		prompts := TaskPrompts{System: res.Candidate.SystemPrompt, User: res.Candidate.UserPrompt}
		if ThinkingEnabled(task, r.cfg.Model) {
			thinking := true
			prompts.Thinking = &thinking
		}
		out.Prompts[string(task)] = prompts
		out.Meta.Scores[string(task)] = TaskScores{ValScore: res.ValScore, FormatPassRate: res.FormatPassRate}
		out.Meta.FormatPassRate[string(task)] = res.FormatPassRate
	}

	out.Meta.Timestamp = r.now().Format("2006-01-02T15:04:05.000000")
	return out, nil
}

// OutputPath returns where the document for model is written under dir.
func OutputPath(dir, model string) string {
	return filepath.Join(dir, strings.ReplaceAll(model, "/", "_")+".json")
}

// WriteOutput writes out to OutputPath(dir, out.Model), creating dir.
func WriteOutput(dir string, out Output) (string, error) {
	if out.Model == "" {
		return "", errors.New("output has no model")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}

	path := OutputPath(dir, out.Model)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}
