// Package scoring turns a model output into a single quality score for one
// dataset example. Each task family is described by an entry in a data table:
// its format gates, the metrics it measures, the weight table used with and
// without a reference, and the threshold rules that produce feedback.
//
// Scoring is pure and deterministic. Format gate failures are not errors; they
// produce a zero score with "Format violation" feedback.
package scoring

import (
	"fmt"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/gates"
	"github.com/ahrav/promptlab/internal/metrics"
)

// metricSet is the named breakdown computed for one output.
type metricSet map[string]float64

// term extracts one weighted quantity from a metric set.
type term func(m metricSet) float64

// weight is one entry of a linear scoring table.
type weight struct {
	term term
	coef float64
}

// feedbackRule contributes a message when its condition holds.
type feedbackRule struct {
	when    func(m metricSet, hasRef bool) bool
	message string
}

// evaluator describes how one task family is scored.
type evaluator struct {
	// label completes the default "Good <label>" feedback.
	label string

	gates func() []gates.Gate

	// measure computes the metric breakdown for a trimmed output.
	measure func(output string, ex domain.DatasetExample) metricSet

	withReference    []weight
	withoutReference []weight

	// override replaces the weighted score when it returns true.
	override func(m metricSet) (float64, bool)

	feedback []feedbackRule
}

// Evaluate scores output against ex using the task's evaluator.
// Returns ErrUnknownTask for task types outside the closed set.
func Evaluate(task domain.TaskType, output string, ex domain.DatasetExample) (domain.EvaluationResult, error) {
	ev, ok := evaluators[task]
	if !ok {
		return domain.EvaluationResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownTask, task)
	}
	return ev.evaluate(output, ex), nil
}

func (e *evaluator) evaluate(output string, ex domain.DatasetExample) domain.EvaluationResult {
	output = strings.TrimSpace(output)

	if ok, reason := gates.Check(e.gates(), output, ex.InputText); !ok {
		return domain.FormatFailure(reason)
	}

	m := e.measure(output, ex)
	hasRef := ex.HasReference()

	table := e.withoutReference
	if hasRef {
		table = e.withReference
	}

	var score float64
	for _, w := range table {
		score += w.coef * w.term(m)
	}
	if e.override != nil {
		if s, ok := e.override(m); ok {
			score = s
		}
	}

	return domain.EvaluationResult{
		Score:        metrics.Clamp01(score),
		FormatPassed: true,
		Feedback:     e.describe(m, hasRef),
		Metrics:      m,
	}
}

func (e *evaluator) describe(m metricSet, hasRef bool) string {
	var parts []string
	for _, rule := range e.feedback {
		if rule.when(m, hasRef) {
			parts = append(parts, rule.message)
		}
	}
	if len(parts) == 0 {
		return "Good " + e.label
	}
	return strings.Join(parts, "; ")
}

func metric(name string) term {
	return func(m metricSet) float64 { return m[name] }
}

// complement yields 1 - m[name].
func complement(name string) term {
	return func(m metricSet) float64 { return 1 - m[name] }
}

// excess yields max(0, m[name] - baseline).
func excess(name string, baseline float64) term {
	return func(m metricSet) float64 { return max(0, m[name]-baseline) }
}

func below(name string, threshold float64) func(metricSet, bool) bool {
	return func(m metricSet, _ bool) bool { return m[name] < threshold }
}

func above(name string, threshold float64) func(metricSet, bool) bool {
	return func(m metricSet, _ bool) bool { return m[name] > threshold }
}

// belowWithReference only fires when the example carries a reference.
func belowWithReference(name string, threshold float64) func(metricSet, bool) bool {
	return func(m metricSet, hasRef bool) bool { return hasRef && m[name] < threshold }
}
