package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskType(t *testing.T) {
	for _, task := range AllTasks() {
		got, err := ParseTaskType(string(task))
		require.NoError(t, err)
		assert.Equal(t, task, got)
	}

	_, err := ParseTaskType("translate")
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.Contains(t, err.Error(), `"translate"`)

	all := AllTasks()
	all[0] = "mutated"
	assert.Equal(t, TaskRewriteFriendly, AllTasks()[0])
}

func TestDatasetExample(t *testing.T) {
	ex := NewExample(TaskSummarize, "long text", "short")
	assert.True(t, ex.HasReference())
	assert.Equal(t, "short", ex.ReferenceText())
	require.NoError(t, ex.Validate())

	empty := NewExample(TaskSummarize, "long text", "")
	assert.False(t, empty.HasReference())

	bare := NewUnreferencedExample(TaskExplain, "entropy")
	assert.False(t, bare.HasReference())
	assert.Empty(t, bare.ReferenceText())

	data, err := json.Marshal(bare)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "reference")

	unknown := NewUnreferencedExample("translate", "x")
	require.ErrorIs(t, unknown.Validate(), ErrInvalidExample)

	missing := DatasetExample{InputText: "x"}
	require.ErrorIs(t, missing.Validate(), ErrInvalidExample)
}

func TestPromptConstraintsPenalty(t *testing.T) {
	c := DefaultPromptConstraints()
	require.NoError(t, c.Validate())

	tests := []struct {
		name         string
		system, user int
		want         float64
	}{
		{name: "within bounds", system: 20, user: 5, want: 0},
		{name: "long system", system: 50, user: 5, want: 0.6},
		{name: "long user", system: 20, user: 12, want: 0.08},
		{name: "short system", system: 4, user: 5, want: 0.06},
		{name: "short user", system: 20, user: 0, want: 0.02},
		{name: "long and short", system: 40, user: 1, want: 0.2 + 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Penalty(tt.system, tt.user), 1e-9)
		})
	}

	var zero PromptConstraints
	require.NoError(t, zero.Validate())
	assert.Zero(t, zero.Penalty(500, 500))

	inverted := PromptConstraints{MinSystemWords: 10, MaxSystemWords: 5}
	require.Error(t, inverted.Validate())
}

func TestPromptCandidate(t *testing.T) {
	c := PromptCandidate{SystemPrompt: "Be brief and clear.", UserPrompt: "Summarize: {text}"}
	system, user := c.WordCounts()
	assert.Equal(t, 4, system)
	assert.Equal(t, 2, user)
	assert.Equal(t, map[string]string{
		ComponentSystemPrompt: "Be brief and clear.",
		ComponentUserPrompt:   "Summarize: {text}",
	}, c.Components())

	v := PromptVariant{System: "s", User: "u", Thinking: true}
	assert.Equal(t, PromptCandidate{SystemPrompt: "s", UserPrompt: "u"}, v.Candidate())
}

func TestWinnerValidate(t *testing.T) {
	w := Winner{SystemPrompt: "s", UserPrompt: "u", Score: 0.4, FormatPassRate: 1, BenchmarkedAt: time.Now()}
	require.NoError(t, w.Validate())
	assert.Equal(t, PromptCandidate{SystemPrompt: "s", UserPrompt: "u"}, w.Candidate())

	w.Score = 1.2
	require.Error(t, w.Validate())
}

func TestFormatFailure(t *testing.T) {
	r := FormatFailure("too long")
	assert.Zero(t, r.Score)
	assert.False(t, r.FormatPassed)
	assert.True(t, strings.HasPrefix(r.Feedback, "Format violation: "))
	assert.Equal(t, map[string]float64{MetricFormatError: 1}, r.Metrics)
	require.NoError(t, r.Validate())
}

func TestTraceFormatPassed(t *testing.T) {
	assert.False(t, Trace{}.FormatPassed())
	assert.False(t, Trace{Metrics: map[string]float64{MetricFormatError: 1}}.FormatPassed())
	assert.True(t, Trace{Metrics: map[string]float64{"rouge_l": 0.3}}.FormatPassed())

	r := Trace{Score: 0.4, Feedback: "ok", Metrics: map[string]float64{"rouge_l": 0.3}}.Result()
	assert.True(t, r.FormatPassed)
	assert.InDelta(t, 0.4, r.Score, 0)
	assert.Equal(t, "ok", r.Feedback)
	assert.False(t, Trace{Feedback: "boom"}.Result().FormatPassed)
}

func TestEvaluationBatch(t *testing.T) {
	b := NewEvaluationBatch(4, false)
	assert.Len(t, b.Outputs, 4)
	assert.Nil(t, b.Trajectories)

	b = NewEvaluationBatch(4, true)
	assert.Len(t, b.Trajectories, 4)
	copy(b.Scores, []float64{0, 0.5, 1, 0.5})
	assert.Equal(t, 4, b.Len())
	assert.InDelta(t, 0.75, b.ScoredFraction(), 1e-9)

	var empty EvaluationBatch
	assert.Zero(t, empty.ScoredFraction())
}

func TestCloneMetrics(t *testing.T) {
	assert.Nil(t, CloneMetrics(nil))

	src := map[string]float64{"a": 1}
	dst := CloneMetrics(src)
	dst["a"] = 2
	assert.InDelta(t, 1.0, src["a"], 0)
}
