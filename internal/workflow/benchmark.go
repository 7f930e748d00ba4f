package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/promptlab/internal/benchmark"
	"github.com/ahrav/promptlab/internal/domain"
)

// DefaultActivityTimeout bounds one benchmark activity attempt when the
// request does not set its own.
const DefaultActivityTimeout = 10 * time.Minute

// BenchmarkWorkflow evaluates the recorded winner and every competitor for
// req's model and task on the validation split, then records the variant with
// the highest mean score. Variants are evaluated concurrently; ties keep the
// earlier variant, so the incumbent winner survives an equal challenger.
func BenchmarkWorkflow(ctx workflow.Context, req benchmark.Request) (*benchmark.Result, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "benchmark.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid benchmark request",
			benchmark.ErrTypeValidation,
			err,
		)
	}

	timeout := req.ActivityTimeout
	if timeout == 0 {
		timeout = DefaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	logger := workflow.GetLogger(ctx)
	var a *benchmark.Activities

	var listed []domain.PromptVariant
	if err := workflow.ExecuteActivity(ctx, a.ListVariants, benchmark.ListVariantsInput{
		Model: req.Model,
		Task:  req.Task,
	}).Get(ctx, &listed); err != nil {
		return nil, err
	}

	futures := make([]workflow.Future, len(listed))
	for i, v := range listed {
		futures[i] = workflow.ExecuteActivity(ctx, a.EvaluateVariant, benchmark.EvaluateVariantInput{
			Model:   req.Model,
			Task:    req.Task,
			Index:   i,
			Variant: v,
			ValSize: req.ValSize,
		})
	}
	variants := make([]benchmark.VariantResult, 0, len(futures))
	for _, f := range futures {
		var r benchmark.VariantResult
		if err := f.Get(ctx, &r); err != nil {
			return nil, err
		}
		variants = append(variants, r)
	}

	best, _ := benchmark.Best(variants)
	logger.Info("Benchmark complete",
		"model", req.Model,
		"task", req.Task,
		"variants", len(variants),
		"best", best.Index,
		"score", best.MeanScore)

	if err := workflow.ExecuteActivity(ctx, a.SaveWinner, benchmark.SaveWinnerInput{
		Model:         req.Model,
		Task:          req.Task,
		Result:        best,
		BenchmarkedAt: workflow.Now(ctx).UTC(),
	}).Get(ctx, nil); err != nil {
		return nil, err
	}

	return &benchmark.Result{
		Model:   req.Model,
		Task:    req.Task,
		Results: variants,
		Best:    best,
	}, nil
}
