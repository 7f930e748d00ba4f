// Package gates implements the structural format checks an output must pass
// before it is scored. Gates are pure predicates over (output, input); a task
// composes an ordered list of them and the first failure decides the outcome.
package gates

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/promptlab/internal/domain"
)

// Gate checks one format rule. It returns false and a human-readable reason
// when the output violates the rule.
type Gate func(output, input string) (bool, string)

// Limits used by the per-task gate sets.
const (
	SummarizeMaxWords   = 60
	ExplainMinSentences = 1
	ExplainMaxSentences = 2
	minEchoCheckLength  = 20
	minEchoPrefixTokens = 3
)

var preamblePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(sure|okay|ok|yes|no problem|of course|certainly|absolutely|here's|here is|i'd be|i would be|i'll|i will|let me|allow me)`),
	regexp.MustCompile(`^(here you go|there you go|got it|understood|right away)`),
	regexp.MustCompile(`^(as requested|as you asked|as per your|per your request)`),
}

type markdownRule struct {
	name string
	re   *regexp.Regexp
}

var markdownRules = []markdownRule{
	{"header", regexp.MustCompile(`(?m)^#+\s`)},
	{"bold", regexp.MustCompile(`\*\*[^*]+\*\*`)},
	{"italic", regexp.MustCompile(`\*[^*]+\*`)},
	{"code fence", regexp.MustCompile("```")},
	{"inline code", regexp.MustCompile("`[^`]+`")},
	{"bullet list", regexp.MustCompile(`(?m)^\s*[-*]\s`)},
	{"numbered list", regexp.MustCompile(`(?m)^\s*\d+\.\s`)},
	{"link", regexp.MustCompile(`\[.+\]\(.+\)`)},
}

var sentenceSplit = regexp.MustCompile(`[.!?]+(?:\s|$)`)

// NoPreamble rejects outputs that open with a stock conversational opener
// such as "Sure" or "Here is".
func NoPreamble(output, _ string) (bool, string) {
	text := strings.ToLower(strings.TrimSpace(output))
	for _, re := range preamblePatterns {
		if m := re.FindString(text); m != "" {
			return false, fmt.Sprintf("Output starts with preamble %q", m)
		}
	}
	return true, ""
}

// NoMarkdown rejects outputs containing markdown formatting anywhere.
func NoMarkdown(output, _ string) (bool, string) {
	for _, rule := range markdownRules {
		if rule.re.MatchString(output) {
			return false, "Output contains markdown (" + rule.name + ")"
		}
	}
	return true, ""
}

// NoSurroundingQuotes rejects outputs wrapped in matching double or single quotes.
func NoSurroundingQuotes(output, _ string) (bool, string) {
	text := strings.TrimSpace(output)
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			return false, "Output is wrapped in quotes"
		}
	}
	return true, ""
}

// NoInputEcho rejects completions that restate the input before continuing it.
// Outputs shorter than 20 characters are never checked.
func NoInputEcho(output, input string) (bool, string) {
	out := strings.ToLower(strings.TrimSpace(output))
	in := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(out) < minEchoCheckLength {
		return true, ""
	}

	if in != "" && strings.HasPrefix(out, in) {
		return false, "Output repeats input text"
	}

	inTokens := strings.Fields(in)
	outTokens := strings.Fields(out)
	if len(inTokens) >= minEchoPrefixTokens && len(outTokens) >= len(inTokens) {
		for i, tok := range inTokens {
			if outTokens[i] != tok {
				return true, ""
			}
		}
		return false, "Output repeats input text"
	}
	return true, ""
}

// WordLimit returns a gate rejecting outputs longer than maxWords words.
func WordLimit(maxWords int) Gate {
	return func(output, _ string) (bool, string) {
		n := len(strings.Fields(output))
		if n > maxWords {
			return false, fmt.Sprintf("Output exceeds %d word limit (%d words)", maxWords, n)
		}
		return true, ""
	}
}

// SentenceCount returns a gate requiring between minSentences and
// maxSentences sentences, inclusive.
func SentenceCount(minSentences, maxSentences int) Gate {
	return func(output, _ string) (bool, string) {
		n := CountSentences(output)
		if n < minSentences {
			return false, fmt.Sprintf("Output has fewer than %d sentences (%d)", minSentences, n)
		}
		if n > maxSentences {
			return false, fmt.Sprintf("Output exceeds %d sentences (%d)", maxSentences, n)
		}
		return true, ""
	}
}

// CountSentences splits text on runs of terminal punctuation followed by
// whitespace or end of text and counts the non-blank pieces.
func CountSentences(text string) int {
	var n int
	for _, part := range sentenceSplit.Split(strings.TrimSpace(text), -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// ForTask returns the ordered gate list for a task. Unknown tasks have no gates.
func ForTask(task domain.TaskType) []Gate {
	switch task {
	case domain.TaskRewriteFriendly, domain.TaskRewriteConcise:
		return []Gate{NoPreamble, NoMarkdown, NoSurroundingQuotes}
	case domain.TaskComplete:
		return []Gate{NoPreamble, NoInputEcho}
	case domain.TaskSummarize:
		return []Gate{NoPreamble, WordLimit(SummarizeMaxWords)}
	case domain.TaskExplain:
		return []Gate{NoPreamble, SentenceCount(ExplainMinSentences, ExplainMaxSentences)}
	default:
		return nil
	}
}

// Check runs gates in order and stops at the first failure.
func Check(gates []Gate, output, input string) (bool, string) {
	for _, g := range gates {
		if ok, reason := g(output, input); !ok {
			return false, reason
		}
	}
	return true, ""
}
