// Package domain provides the core types shared by the prompt evaluation engine
// and the optimization adapter. It defines task families, dataset examples,
// prompt candidates, evaluation results, traces and batch results. The types are
// plain values: they are constructed once and never mutated by the engine.
package domain

import (
	"fmt"
	"slices"
)

// TaskType identifies one of the closed set of task families the engine scores.
// Using a typed string keeps JSON encoding readable while enabling exhaustive
// switches over the known variants.
type TaskType string

const (
	// TaskRewriteFriendly rewrites text into a more polite, neutral register.
	TaskRewriteFriendly TaskType = "rewrite_friendly"

	// TaskRewriteConcise rewrites text into a shorter form.
	TaskRewriteConcise TaskType = "rewrite_concise"

	// TaskComplete continues a text fragment.
	TaskComplete TaskType = "complete"

	// TaskSummarize produces a short summary of a passage.
	TaskSummarize TaskType = "summarize"

	// TaskExplain explains a term in one or two sentences.
	TaskExplain TaskType = "explain"
)

// AllTasks returns every task type in canonical order.
// Returns a fresh slice so callers may reorder it freely.
func AllTasks() []TaskType {
	return []TaskType{
		TaskRewriteFriendly,
		TaskRewriteConcise,
		TaskComplete,
		TaskSummarize,
		TaskExplain,
	}
}

// ParseTaskType converts a task name into a TaskType.
// Returns ErrUnknownTask wrapped with the offending name for anything outside
// the closed set.
func ParseTaskType(name string) (TaskType, error) {
	t := TaskType(name)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	return t, nil
}

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool { return slices.Contains(AllTasks(), t) }

// String returns the canonical task name.
func (t TaskType) String() string { return string(t) }
