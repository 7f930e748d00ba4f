package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/promptlab/internal/benchmark"
	"github.com/ahrav/promptlab/internal/workflow"
	"github.com/ahrav/promptlab/pkg/activity"
)

// RegisterAll registers all workflows and activities with the Temporal worker.
// It must be called once during worker startup, before the worker starts.
func RegisterAll(w sdkworker.Registry, deps Dependencies) {
	base := activity.NewBaseActivities(deps.EventSink)

	benchmarkActivities := benchmark.NewActivities(
		base,
		deps.Completer,
		deps.Loader,
		deps.Store,
		deps.Competitors,
		deps.Metrics,
		benchmark.Config{Concurrency: deps.Concurrency},
	)

	w.RegisterWorkflow(workflow.BenchmarkWorkflow)
	w.RegisterActivity(benchmarkActivities)
}
