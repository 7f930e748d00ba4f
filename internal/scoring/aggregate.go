package scoring

import "github.com/ahrav/promptlab/internal/domain"

// Summary is the aggregate of a set of evaluation results.
type Summary struct {
	MeanScore      float64 `json:"mean_score"`
	FormatPassRate float64 `json:"format_pass_rate"`
	Count          int     `json:"count"`
}

// Aggregate computes the mean score and format pass rate of results.
// Both rates are 0 for an empty slice.
func Aggregate(results []domain.EvaluationResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	scores := make([]float64, len(results))
	var passed int
	for i, r := range results {
		scores[i] = r.Score
		if r.FormatPassed {
			passed++
		}
	}

	return Summary{
		MeanScore:      Mean(scores),
		FormatPassRate: float64(passed) / float64(len(results)),
		Count:          len(results),
	}
}

// Mean returns the average of scores, or 0 when there are none.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
