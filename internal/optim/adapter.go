// Package optim connects the evaluation engine to an external prompt search
// engine. The Adapter scores a candidate on a batch of examples, and the
// Runner evaluates seed prompts per task and writes the result document.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/promptlab/internal/candidate"
	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/llm"
	"github.com/ahrav/promptlab/internal/scoring"
)

// Adapter defaults.
const (
	DefaultModel       = "gpt-4.1-mini"
	DefaultConcurrency = 4
)

// ErrNilCompleter is returned when an adapter is built without a completer.
var ErrNilCompleter = errors.New("completer is required")

var tracer = otel.Tracer("promptlab/optim")

// thinkingTasks benefit from a reasoning pass on models that support one.
var thinkingTasks = map[domain.TaskType]bool{
	domain.TaskRewriteFriendly: true,
	domain.TaskRewriteConcise:  true,
	domain.TaskSummarize:       true,
}

// ThinkingEnabled reports whether requests for task on model should ask for
// thinking when no explicit override is configured.
func ThinkingEnabled(task domain.TaskType, model string) bool {
	return thinkingTasks[task] && strings.Contains(strings.ToLower(model), "qwen")
}

// Adapter evaluates prompt candidates for a single task. It is safe for
// concurrent use; configuration is read-only after New.
type Adapter struct {
	task        domain.TaskType
	completer   llm.Completer
	model       string
	constraints domain.PromptConstraints
	thinking    *bool
	concurrency int
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithModel sets the model id sent with every completion.
func WithModel(model string) Option { return func(a *Adapter) { a.model = model } }

// WithConstraints sets the template length bounds used for the length penalty.
func WithConstraints(c domain.PromptConstraints) Option {
	return func(a *Adapter) { a.constraints = c }
}

// WithThinking forces the thinking flag instead of deriving it from the task and model.
func WithThinking(enabled bool) Option { return func(a *Adapter) { a.thinking = &enabled } }

// WithConcurrency bounds how many examples are evaluated at once.
func WithConcurrency(n int) Option { return func(a *Adapter) { a.concurrency = n } }

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option { return func(a *Adapter) { a.logger = l } }

// WithMetrics records batch and example metrics.
func WithMetrics(m *Metrics) Option { return func(a *Adapter) { a.metrics = m } }

// New builds an adapter for task.
func New(task domain.TaskType, completer llm.Completer, opts ...Option) (*Adapter, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTask, task)
	}
	if completer == nil {
		return nil, ErrNilCompleter
	}

	a := &Adapter{
		task:        task,
		completer:   completer,
		model:       DefaultModel,
		constraints: domain.DefaultPromptConstraints(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.constraints.Validate(); err != nil {
		return nil, fmt.Errorf("prompt constraints: %w", err)
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "optim", "task", string(task), "model", a.model)

	return a, nil
}

// Task returns the task this adapter scores.
func (a *Adapter) Task() domain.TaskType { return a.task }

// Model returns the model id sent with completions.
func (a *Adapter) Model() string { return a.model }

// Thinking returns the thinking flag sent with completions.
func (a *Adapter) Thinking() bool {
	if a.thinking != nil {
		return *a.thinking
	}
	return ThinkingEnabled(a.task, a.model)
}

// Evaluate scores the candidate described by components on batch. It never
// fails: examples that cannot be evaluated score 0 with the error as
// feedback, and a candidate that breaks the placeholder contract scores 0
// everywhere without any completion calls. Results are positionally aligned
// with batch.
func (a *Adapter) Evaluate(
	ctx context.Context,
	batch []domain.DatasetExample,
	components map[string]string,
	captureTraces bool,
) domain.EvaluationBatch {
	ctx, span := tracer.Start(ctx, "Adapter.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("promptlab.task", string(a.task)),
		attribute.String("llm.model", a.model),
		attribute.Int("promptlab.batch_size", len(batch)),
	)

	start := time.Now()
	out := domain.NewEvaluationBatch(len(batch), captureTraces)
	c := candidate.FromComponents(components)

	if ok, reason := candidate.ValidatePlaceholders(c, a.task); !ok {
		a.logger.WarnContext(ctx, "candidate rejected", "reason", reason, "batch_size", len(batch))
		if captureTraces {
			for i, ex := range batch {
				out.Trajectories[i] = domain.Trace{InputText: ex.InputText, Feedback: reason}
			}
		}
		span.SetAttributes(attribute.Bool("promptlab.candidate_valid", false))
		a.metrics.recordBatch(a.task, batchInvalidCandidate, 0, time.Since(start))
		return out
	}

	// Length is judged on the text the optimizer proposed, labels included.
	systemWords, userWords := domain.PromptCandidate{
		SystemPrompt: components[domain.ComponentSystemPrompt],
		UserPrompt:   components[domain.ComponentUserPrompt],
	}.WordCounts()
	penalty := a.constraints.Penalty(systemWords, userWords)
	thinking := a.Thinking()

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, ex := range batch {
		g.Go(func() error {
			r := a.evaluateExample(ctx, c, ex, thinking)
			score := max(r.trace.Score-penalty, 0)
			r.trace.Score = score

			out.Outputs[i] = r.trace.Output
			out.Scores[i] = score
			if captureTraces {
				out.Trajectories[i] = r.trace
			}
			a.metrics.recordExample(a.task, r.outcome, score)
			return nil
		})
	}
	_ = g.Wait()

	mean := scoring.Mean(out.Scores)
	span.SetAttributes(
		attribute.Bool("promptlab.candidate_valid", true),
		attribute.Float64("promptlab.length_penalty", penalty),
		attribute.Float64("promptlab.mean_score", mean),
	)
	a.metrics.recordBatch(a.task, batchEvaluated, penalty, time.Since(start))
	a.logger.DebugContext(ctx, "batch evaluated",
		"batch_size", len(batch),
		"length_penalty", penalty,
		"mean_score", mean,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out
}

type exampleResult struct {
	trace   domain.Trace
	outcome string
}

// evaluateExample renders, completes and scores one example. The returned
// trace holds the unpenalized score.
func (a *Adapter) evaluateExample(
	ctx context.Context,
	c domain.PromptCandidate,
	ex domain.DatasetExample,
	thinking bool,
) (res exampleResult) {
	res.trace.InputText = ex.InputText

	fail := func(feedback string) exampleResult {
		a.logger.WarnContext(ctx, "example evaluation failed", "error", feedback)
		return exampleResult{
			trace: domain.Trace{
				InputText:       ex.InputText,
				FormattedPrompt: res.trace.FormattedPrompt,
				Feedback:        feedback,
			},
			outcome: outcomeError,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Sprint(r))
		}
	}()

	prompt, err := candidate.RenderUser(c, ex)
	if err != nil {
		return fail(err.Error())
	}
	res.trace.FormattedPrompt = prompt

	resp, err := a.completer.Complete(ctx, llm.CompletionRequest{
		Model:        a.model,
		SystemPrompt: c.SystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    llm.DefaultMaxTokens,
		Temperature:  llm.DefaultTemperature,
		Thinking:     thinking,
	})
	if err != nil {
		return fail(err.Error())
	}

	result, err := scoring.Evaluate(a.task, resp.Text, ex)
	if err != nil {
		return fail(err.Error())
	}

	res.trace.Output = resp.Text
	res.trace.Score = result.Score
	res.trace.Feedback = result.Feedback
	res.trace.Metrics = domain.CloneMetrics(result.Metrics)
	res.outcome = outcomeScored
	if !result.FormatPassed {
		res.outcome = outcomeFormatFailed
	}
	return res
}

// MakeReflectiveDataset builds one record sequence per requested component,
// aligned with the evaluated batch. Fields missing from the batch default to
// empty strings and zero scores. The candidate is accepted for interface
// symmetry with Evaluate; records do not depend on it.
func (a *Adapter) MakeReflectiveDataset(
	_ map[string]string,
	batch domain.EvaluationBatch,
	components []string,
) map[string][]domain.ReflectiveRecord {
	return MakeReflectiveDataset(batch, components)
}

// MakeReflectiveDataset is the adapter-independent form of
// Adapter.MakeReflectiveDataset.
func MakeReflectiveDataset(batch domain.EvaluationBatch, components []string) map[string][]domain.ReflectiveRecord {
	n := max(len(batch.Scores), len(batch.Outputs), len(batch.Trajectories))

	records := make([]domain.ReflectiveRecord, n)
	for i := range records {
		var r domain.ReflectiveRecord
		if i < len(batch.Trajectories) {
			t := batch.Trajectories[i]
			r.Input, r.Prompt, r.Feedback = t.InputText, t.FormattedPrompt, t.Feedback
		}
		if i < len(batch.Outputs) {
			r.Output = batch.Outputs[i]
		}
		if i < len(batch.Scores) {
			r.Score = batch.Scores[i]
		}
		records[i] = r
	}

	out := make(map[string][]domain.ReflectiveRecord, len(components))
	for _, name := range components {
		out[name] = append([]domain.ReflectiveRecord(nil), records...)
	}
	return out
}
