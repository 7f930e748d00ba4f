package scoring

import (
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
	"github.com/ahrav/promptlab/internal/gates"
	"github.com/ahrav/promptlab/internal/metrics"
)

// Metric names reported in EvaluationResult.Metrics.
const (
	MetricRougeL              = "rouge_l"
	MetricTokenF1             = "token_f1"
	MetricMeaningPreservation = "meaning_preservation"
	MetricLengthRatio         = "length_ratio"
	MetricUnchangedPenalty    = "unchanged_penalty"
	MetricRepetition          = "repetition"
	MetricInputCoherence      = "input_coherence"
	MetricLengthPenalty       = "length_penalty"
	MetricBrevity             = "brevity"
	MetricKeyTermCoverage     = "key_term_coverage"
	MetricHallucinationRisk   = "hallucination_risk"
	MetricKeyTermOverlap      = "key_term_overlap"
	MetricLengthScore         = "length_score"
	MetricTermMentioned       = "term_mentioned"
)

// Shaping constants.
const (
	// neutralSimilarity stands in for reference-based metrics when an example
	// has no reference.
	neutralSimilarity = 0.5

	unchangedRewriteScore = 0.1

	summaryTargetWords = 30
	summaryTolerance   = 0.5

	// hallucinationBaseline is the novel-term ratio tolerated before penalizing.
	hallucinationBaseline = 0.3
)

var evaluators = map[domain.TaskType]*evaluator{
	domain.TaskRewriteFriendly: rewriteEvaluator(domain.TaskRewriteFriendly),
	domain.TaskRewriteConcise:  rewriteEvaluator(domain.TaskRewriteConcise),
	domain.TaskComplete:        completeEvaluator(),
	domain.TaskSummarize:       summarizeEvaluator(),
	domain.TaskExplain:         explainEvaluator(),
}

func gatesFor(task domain.TaskType) func() []gates.Gate {
	return func() []gates.Gate { return gates.ForTask(task) }
}

func rewriteEvaluator(task domain.TaskType) *evaluator {
	return &evaluator{
		label:   "rewrite",
		gates:   gatesFor(task),
		measure: measureRewrite,
		withReference: []weight{
			{metric(MetricRougeL), 0.4},
			{metric(MetricMeaningPreservation), 0.3},
			{metric(MetricTokenF1), 0.2},
			{metric(MetricLengthRatio), 0.1},
		},
		withoutReference: []weight{
			{metric(MetricMeaningPreservation), 0.5},
			{complement(MetricUnchangedPenalty), 0.3},
			{metric(MetricLengthRatio), 0.2},
		},
		override: func(m metricSet) (float64, bool) {
			return unchangedRewriteScore, m[MetricUnchangedPenalty] > 0
		},
		feedback: []feedbackRule{
			{belowWithReference(MetricRougeL, 0.3), "Low similarity to reference"},
			{below(MetricMeaningPreservation, 0.3), "Meaning may not be preserved"},
			{above(MetricUnchangedPenalty, 0), "Output is identical to input"},
		},
	}
}

func measureRewrite(output string, ex domain.DatasetExample) metricSet {
	m := metricSet{
		MetricRougeL:  neutralSimilarity,
		MetricTokenF1: neutralSimilarity,
	}
	if ex.HasReference() {
		ref := ex.ReferenceText()
		m[MetricRougeL] = metrics.RougeL(output, ref)
		m[MetricTokenF1] = metrics.TokenF1(output, ref)
	}

	m[MetricMeaningPreservation] = metrics.SemanticPreservation(output, ex.InputText)

	ratio := float64(metrics.WordCount(output)) / float64(max(metrics.WordCount(ex.InputText), 1))
	m[MetricLengthRatio] = min(ratio, 2) / 2

	m[MetricUnchangedPenalty] = 0
	if strings.ToLower(output) == strings.ToLower(strings.TrimSpace(ex.InputText)) {
		m[MetricUnchangedPenalty] = 1
	}
	return m
}

func completeEvaluator() *evaluator {
	return &evaluator{
		label:   "completion",
		gates:   gatesFor(domain.TaskComplete),
		measure: measureComplete,
		withReference: []weight{
			{metric(MetricRougeL), 0.3},
			{metric(MetricRepetition), 0.3},
			{metric(MetricInputCoherence), 0.2},
			{metric(MetricLengthPenalty), 0.2},
		},
		withoutReference: []weight{
			{metric(MetricRepetition), 0.4},
			{metric(MetricInputCoherence), 0.3},
			{metric(MetricLengthPenalty), 0.3},
		},
		feedback: []feedbackRule{
			{below(MetricRepetition, 0.7), "High repetition detected"},
			{below(MetricInputCoherence, 0.1), "Low coherence with input"},
			{below(MetricLengthPenalty, 0.5), "Output length is problematic"},
		},
	}
}

func measureComplete(output string, ex domain.DatasetExample) metricSet {
	m := metricSet{
		MetricRepetition:     metrics.RepetitionScore(output, 3),
		MetricInputCoherence: metrics.TokenOverlap(output, ex.InputText),
		MetricRougeL:         neutralSimilarity,
		MetricLengthPenalty:  metrics.Ramp(metrics.WordCount(output), 5, 100, 200, 0.5),
	}
	if ex.HasReference() {
		m[MetricRougeL] = metrics.RougeL(output, ex.ReferenceText())
	}
	return m
}

func summarizeEvaluator() *evaluator {
	return &evaluator{
		label:   "summary",
		gates:   gatesFor(domain.TaskSummarize),
		measure: measureSummarize,
		withReference: []weight{
			{metric(MetricRougeL), 0.4},
			{metric(MetricBrevity), 0.25},
			{metric(MetricKeyTermCoverage), 0.25},
			{excess(MetricHallucinationRisk, hallucinationBaseline), -0.1},
		},
		withoutReference: []weight{
			{metric(MetricKeyTermCoverage), 0.4},
			{metric(MetricBrevity), 0.4},
			{excess(MetricHallucinationRisk, hallucinationBaseline), -0.2},
		},
		feedback: []feedbackRule{
			{belowWithReference(MetricRougeL, 0.3), "Low similarity to reference summary"},
			{below(MetricBrevity, 0.5), "Summary length is not optimal"},
			{above(MetricHallucinationRisk, 0.5), "Possible hallucination (novel terms)"},
			{below(MetricKeyTermCoverage, 0.2), "Missing key terms from input"},
		},
	}
}

func measureSummarize(output string, ex domain.DatasetExample) metricSet {
	m := metricSet{
		MetricRougeL:            neutralSimilarity,
		MetricBrevity:           metrics.BrevityScore(output, summaryTargetWords, summaryTolerance),
		MetricKeyTermCoverage:   metrics.KeyTermOverlap(output, ex.InputText, metrics.DefaultKeyTermLength),
		MetricHallucinationRisk: metrics.NovelTermRatio(output, ex.InputText),
	}
	if ex.HasReference() {
		m[MetricRougeL] = metrics.RougeL(output, ex.ReferenceText())
	}
	return m
}

func explainEvaluator() *evaluator {
	return &evaluator{
		label:   "explanation",
		gates:   gatesFor(domain.TaskExplain),
		measure: measureExplain,
		withReference: []weight{
			{metric(MetricRougeL), 0.35},
			{metric(MetricKeyTermOverlap), 0.25},
			{metric(MetricLengthScore), 0.2},
			{metric(MetricTermMentioned), 0.2},
		},
		withoutReference: []weight{
			{metric(MetricLengthScore), 0.4},
			{metric(MetricTermMentioned), 0.4},
			{metric(MetricKeyTermOverlap), 0.2},
		},
		feedback: []feedbackRule{
			{belowWithReference(MetricRougeL, 0.3), "Low similarity to reference explanation"},
			{below(MetricLengthScore, 0.5), "Explanation length is problematic"},
			{below(MetricTermMentioned, 0.5), "Input term not clearly addressed"},
		},
	}
}

func measureExplain(output string, ex domain.DatasetExample) metricSet {
	m := metricSet{
		MetricRougeL:         neutralSimilarity,
		MetricKeyTermOverlap: neutralSimilarity,
		MetricLengthScore:    metrics.Ramp(metrics.WordCount(output), 10, 50, 100, 0.3),
		MetricTermMentioned:  termMentioned(output, ex.InputText),
	}
	if ex.HasReference() {
		ref := ex.ReferenceText()
		m[MetricRougeL] = metrics.RougeL(output, ref)
		m[MetricKeyTermOverlap] = metrics.KeyTermOverlap(output, ref, metrics.DefaultKeyTermLength)
	}
	return m
}

// termMentioned is 1 when the whole input term appears in the output,
// otherwise the fraction of its words found as substrings of the output.
func termMentioned(output, input string) float64 {
	out := strings.ToLower(output)
	term := strings.ToLower(strings.TrimSpace(input))
	if strings.Contains(out, term) {
		return 1
	}

	words := strings.Fields(term)
	var found int
	for _, w := range words {
		if strings.Contains(out, w) {
			found++
		}
	}
	return float64(found) / float64(max(len(words), 1))
}
