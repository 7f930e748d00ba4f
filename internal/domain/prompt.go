package domain

import (
	"strings"
	"time"
)

// Component names used when a candidate crosses the optimizer boundary.
// The external search engine addresses each template by these keys.
const (
	ComponentSystemPrompt = "system_prompt"
	ComponentUserPrompt   = "user_prompt"
)

// PromptCandidate is a system/user template pair under evaluation.
// Candidates are immutable: every optimizer round produces a new value.
type PromptCandidate struct {
	// SystemPrompt is sent verbatim as the system message.
	SystemPrompt string `json:"system_prompt"`

	// UserPrompt is a template containing named placeholders such as {text}.
	UserPrompt string `json:"user_prompt"`
}

// Components returns the candidate as a component map for the optimizer.
func (c PromptCandidate) Components() map[string]string {
	return map[string]string{
		ComponentSystemPrompt: c.SystemPrompt,
		ComponentUserPrompt:   c.UserPrompt,
	}
}

// WordCounts returns the whitespace word counts of both templates.
func (c PromptCandidate) WordCounts() (system, user int) {
	return len(strings.Fields(c.SystemPrompt)), len(strings.Fields(c.UserPrompt))
}

// PromptVariant is a competitor prompt considered during benchmarking.
type PromptVariant struct {
	System   string `json:"system"`
	User     string `json:"user"`
	Thinking bool   `json:"thinking,omitempty"`
}

// Candidate converts the variant into a PromptCandidate.
func (v PromptVariant) Candidate() PromptCandidate {
	return PromptCandidate{SystemPrompt: v.System, UserPrompt: v.User}
}

// Winner is the best recorded candidate for a model and task pair.
type Winner struct {
	SystemPrompt   string    `json:"system"`
	UserPrompt     string    `json:"user"`
	Score          float64   `json:"score"            validate:"min=0,max=1"`
	FormatPassRate float64   `json:"format_pass_rate" validate:"min=0,max=1"`
	BenchmarkedAt  time.Time `json:"benchmarked_at"`
	Thinking       bool      `json:"thinking,omitempty"`
}

// Candidate converts the winner into a PromptCandidate.
func (w Winner) Candidate() PromptCandidate {
	return PromptCandidate{SystemPrompt: w.SystemPrompt, UserPrompt: w.UserPrompt}
}

// Validate checks the winner's score bounds.
func (w *Winner) Validate() error { return validate.Struct(w) }

// PromptConstraints bounds candidate template lengths.
// Words outside [Min, Max] are charged per word: LengthPenalty above the maximum,
// BrevityPenalty below the minimum.
type PromptConstraints struct {
	MinSystemWords int     `json:"min_system_words" yaml:"min_system_words" validate:"min=0"`
	MaxSystemWords int     `json:"max_system_words" yaml:"max_system_words" validate:"gtefield=MinSystemWords"`
	MinUserWords   int     `json:"min_user_words"   yaml:"min_user_words"   validate:"min=0"`
	MaxUserWords   int     `json:"max_user_words"   yaml:"max_user_words"   validate:"gtefield=MinUserWords"`
	LengthPenalty  float64 `json:"length_penalty"   yaml:"length_penalty"   validate:"min=0"`
	BrevityPenalty float64 `json:"brevity_penalty"  yaml:"brevity_penalty"  validate:"min=0"`
}

// DefaultPromptConstraints returns the standard template length bounds.
func DefaultPromptConstraints() PromptConstraints {
	return PromptConstraints{
		MinSystemWords: 10,
		MaxSystemWords: 35,
		MinUserWords:   2,
		MaxUserWords:   10,
		LengthPenalty:  0.04,
		BrevityPenalty: 0.01,
	}
}

// Validate checks the constraint bounds.
func (p *PromptConstraints) Validate() error { return validate.Struct(p) }

// Penalty computes the candidate-level length penalty for the given word counts.
// Too-long and too-short charges are summed; the result is never negative and
// has no upper bound.
func (p PromptConstraints) Penalty(systemWords, userWords int) float64 {
	var penalty float64

	if systemWords > p.MaxSystemWords {
		penalty += float64(systemWords-p.MaxSystemWords) * p.LengthPenalty
	}
	if userWords > p.MaxUserWords {
		penalty += float64(userWords-p.MaxUserWords) * p.LengthPenalty
	}

	if systemWords < p.MinSystemWords {
		penalty += float64(p.MinSystemWords-systemWords) * p.BrevityPenalty
	}
	if userWords < p.MinUserWords {
		penalty += float64(p.MinUserWords-userWords) * p.BrevityPenalty
	}

	return max(penalty, 0)
}
