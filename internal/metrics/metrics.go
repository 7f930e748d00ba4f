// Package metrics provides the pure scoring primitives used by task evaluators.
// Every function is deterministic, allocation-light and bounded in [0, 1].
// Tokenization is whitespace based and case-insensitive; word length is
// measured in Unicode code points.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// DefaultKeyTermLength is the minimum length of a word considered a key term.
const DefaultKeyTermLength = 4

// Tokenize lowercases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// WordCount returns the number of whitespace separated words in text.
func WordCount(text string) int { return len(strings.Fields(text)) }

// LCSLength returns the length of the longest common subsequence of two token
// sequences using the classic O(m·n) dynamic program. Only two rows are kept.
func LCSLength(a, b []string) int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// RougeL returns the ROUGE-L F1 between output and reference.
// Returns 0 when either side has no tokens.
func RougeL(output, reference string) float64 {
	out := Tokenize(output)
	ref := Tokenize(reference)
	if len(out) == 0 || len(ref) == 0 {
		return 0
	}

	lcs := float64(LCSLength(out, ref))
	precision := lcs / float64(len(out))
	recall := lcs / float64(len(ref))
	return f1(precision, recall)
}

// TokenOverlap returns the Jaccard similarity of the two token sets.
// The measure is symmetric and 0 when either side is empty.
func TokenOverlap(a, b string) float64 {
	setA := tokenSet(Tokenize(a), 0)
	setB := tokenSet(Tokenize(b), 0)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := intersectionSize(setA, setB)
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// TokenF1 returns the F1 of the multiset intersection of token counts.
func TokenF1(output, reference string) float64 {
	outTokens := Tokenize(output)
	refTokens := Tokenize(reference)
	if len(outTokens) == 0 || len(refTokens) == 0 {
		return 0
	}

	refCounts := make(map[string]int, len(refTokens))
	for _, tok := range refTokens {
		refCounts[tok]++
	}

	var common int
	for _, tok := range outTokens {
		if refCounts[tok] > 0 {
			refCounts[tok]--
			common++
		}
	}
	if common == 0 {
		return 0
	}

	precision := float64(common) / float64(len(outTokens))
	recall := float64(common) / float64(len(refTokens))
	return f1(precision, recall)
}

// BrevityScore rewards outputs up to targetWords linearly and penalizes
// overshoot, reaching 0 once the ratio exceeds 1+tolerance.
// Empty output scores 0.
func BrevityScore(output string, targetWords int, tolerance float64) float64 {
	words := WordCount(output)
	if words == 0 || targetWords <= 0 {
		return 0
	}

	ratio := float64(words) / float64(targetWords)
	if ratio <= 1 {
		return ratio
	}
	if tolerance <= 0 {
		return 0
	}
	penalty := min((ratio-1)/tolerance, 1)
	return max(0, 1-penalty)
}

// RepetitionScore returns the fraction of unique n-grams in text.
// Text shorter than n tokens has no repetition and scores 1.
func RepetitionScore(text string, n int) float64 {
	tokens := Tokenize(text)
	if n <= 0 || len(tokens) < n {
		return 1
	}

	total := len(tokens) - n + 1
	seen := make(map[string]struct{}, total)
	for i := range total {
		seen[strings.Join(tokens[i:i+n], "\x00")] = struct{}{}
	}
	return float64(len(seen)) / float64(total)
}

// KeyTermOverlap returns the fraction of the reference's key terms (words of
// at least minLen characters) found in the output. A reference without key
// terms scores 1; an output without key terms scores 0.
func KeyTermOverlap(output, reference string, minLen int) float64 {
	outTerms := tokenSet(Tokenize(output), minLen)
	refTerms := tokenSet(Tokenize(reference), minLen)
	if len(refTerms) == 0 {
		return 1
	}
	if len(outTerms) == 0 {
		return 0
	}
	return float64(intersectionSize(outTerms, refTerms)) / float64(len(refTerms))
}

// SemanticPreservation estimates how much of the input's meaning survives by
// the fraction of its key terms retained in the output. Input without key
// terms scores 1.
func SemanticPreservation(output, input string) float64 {
	inTerms := tokenSet(Tokenize(input), DefaultKeyTermLength)
	if len(inTerms) == 0 {
		return 1
	}
	outTerms := tokenSet(Tokenize(output), DefaultKeyTermLength)
	return float64(intersectionSize(inTerms, outTerms)) / float64(len(inTerms))
}

// NovelTermRatio returns the fraction of the output's key terms absent from
// the input. Returns 0 when the output has no key terms.
func NovelTermRatio(output, input string) float64 {
	outTerms := tokenSet(Tokenize(output), DefaultKeyTermLength)
	if len(outTerms) == 0 {
		return 0
	}
	inTerms := tokenSet(Tokenize(input), DefaultKeyTermLength)
	novel := len(outTerms) - intersectionSize(outTerms, inTerms)
	return float64(novel) / float64(len(outTerms))
}

// Ramp shapes a word count into [floor, 1]: counts below low rise linearly
// from 0, counts in [low, high] score 1, and counts above high decay by
// 1/span per word until reaching floor.
func Ramp(words, low, high int, span, floor float64) float64 {
	switch {
	case words < low:
		return float64(words) / float64(low)
	case words > high:
		return max(floor, 1-float64(words-high)/span)
	default:
		return 1
	}
}

// Clamp01 bounds x to [0, 1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// tokenSet builds a set of tokens at least minLen code points long.
func tokenSet(tokens []string, minLen int) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= minLen {
			set[tok] = struct{}{}
		}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	var n int
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
