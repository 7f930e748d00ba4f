package domain

// MetricFormatError is the single metric reported when a format gate fails.
const MetricFormatError = "format_error"

// EvaluationResult is the outcome of scoring one output against one example.
//
// Invariant: FormatPassed is false exactly when Score is 0 and Metrics holds
// only {"format_error": 1}. Use FormatFailure to build such results.
type EvaluationResult struct {
	// Score is the combined quality score in [0, 1].
	Score float64 `json:"score" validate:"min=0,max=1"`

	// FormatPassed reports whether every format gate for the task passed.
	FormatPassed bool `json:"format_passed"`

	// Feedback is a human-readable explanation of the score.
	Feedback string `json:"feedback"`

	// Metrics holds the named metric breakdown that produced Score.
	Metrics map[string]float64 `json:"metrics"`
}

// FormatFailure builds the canonical result for a failed format gate.
func FormatFailure(reason string) EvaluationResult {
	return EvaluationResult{
		Score:        0,
		FormatPassed: false,
		Feedback:     "Format violation: " + reason,
		Metrics:      map[string]float64{MetricFormatError: 1.0},
	}
}

// Validate checks the score bounds.
func (r *EvaluationResult) Validate() error { return validate.Struct(r) }

// Trace is the per-example record captured during one adapter call.
// Traces live only for the duration of a single evaluation and feed the
// reflective dataset; they are never persisted by the engine.
type Trace struct {
	InputText       string             `json:"input_text"`
	FormattedPrompt string             `json:"formatted_prompt"`
	Output          string             `json:"output"`
	Score           float64            `json:"score"`
	Feedback        string             `json:"feedback"`
	Metrics         map[string]float64 `json:"metrics"`
}

// FormatPassed reports whether the traced example produced a scored output.
// Failure traces carry no metrics, gate failures carry only format_error.
func (t Trace) FormatPassed() bool {
	if len(t.Metrics) == 0 {
		return false
	}
	_, failed := t.Metrics[MetricFormatError]
	return !failed
}

// Result converts the trace back into the evaluation result it recorded.
func (t Trace) Result() EvaluationResult {
	return EvaluationResult{
		Score:        t.Score,
		FormatPassed: t.FormatPassed(),
		Feedback:     t.Feedback,
		Metrics:      t.Metrics,
	}
}

// EvaluationBatch is the positional result of evaluating a candidate on a batch.
// Outputs and Scores always have the batch's length; Trajectories is nil unless
// traces were requested, in which case it has the batch's length too.
type EvaluationBatch struct {
	Outputs      []string  `json:"outputs"`
	Scores       []float64 `json:"scores"`
	Trajectories []Trace   `json:"trajectories,omitempty"`
}

// NewEvaluationBatch allocates a batch for n examples.
func NewEvaluationBatch(n int, captureTraces bool) EvaluationBatch {
	b := EvaluationBatch{
		Outputs: make([]string, n),
		Scores:  make([]float64, n),
	}
	if captureTraces {
		b.Trajectories = make([]Trace, n)
	}
	return b
}

// Len returns the number of examples in the batch.
func (b EvaluationBatch) Len() int { return len(b.Scores) }

// ScoredFraction returns the fraction of examples with a positive score.
func (b EvaluationBatch) ScoredFraction() float64 {
	if len(b.Scores) == 0 {
		return 0
	}
	var n int
	for _, s := range b.Scores {
		if s > 0 {
			n++
		}
	}
	return float64(n) / float64(len(b.Scores))
}

// ReflectiveRecord is one row of the reflective dataset handed to the search
// engine. Field names are part of the external contract.
type ReflectiveRecord struct {
	Input    string  `json:"input"`
	Prompt   string  `json:"prompt"`
	Output   string  `json:"output"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// CloneMetrics returns a copy of a metric breakdown so traces never share
// maps with evaluator results.
func CloneMetrics(m map[string]float64) map[string]float64 { return cloneMetrics(m) }
