package providers

import (
	"context"
	"crypto/md5" //nolint:gosec // used for deterministic bucketing, not security
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ahrav/promptlab/internal/llm"
)

var (
	mockOpeners      = []string{"The", "This", "Our", "A", "That"}
	mockAdjectives   = []string{"important", "significant", "notable", "key", "essential"}
	mockVerbs        = []string{"demonstrates", "shows", "indicates", "reveals", "suggests"}
	mockNouns        = []string{"approach", "method", "strategy", "technique", "solution"}
	mockContinuation = []string{
		"and this leads to improved results.",
		"which provides additional context.",
		"resulting in better outcomes overall.",
		"and demonstrates the key principles.",
		"showing how this approach works.",
	}
	mockSummaries = []string{
		"The text discusses key concepts and their applications.",
		"This passage outlines the main ideas and supporting details.",
		"The content covers important topics and their implications.",
		"A brief overview of the subject matter and key points.",
		"The text presents core arguments and relevant examples.",
	}
	mockExplanations = []string{
		"This refers to a concept that involves specific processes. It is commonly used in various contexts.",
		"The term describes a method for achieving particular goals. Applications include multiple domains.",
		"This represents an approach to solving certain problems. It has practical implications.",
	}

	mockItemID = regexp.MustCompile(`ID:\s*(\w+)`)
)

// Mock is a deterministic Completer for tests and offline runs. The reply is
// chosen from fixed phrase tables by hashing the seed and the user prompt, and
// the phrase family is picked from keywords in the prompts.
type Mock struct {
	seed int
}

// NewMock returns a mock seeded with seed.
func NewMock(seed int) *Mock { return &Mock{seed: seed} }

// Complete implements llm.Completer. It never fails.
func (m *Mock) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	text := m.generate(req.UserPrompt, req.SystemPrompt+req.UserPrompt)
	return llm.CompletionResponse{
		Text:       text,
		TokensUsed: len(strings.Fields(text)) * 2,
		Model:      req.Model,
	}, nil
}

func (m *Mock) hash(prompt string) uint64 {
	sum := md5.Sum([]byte(strconv.Itoa(m.seed) + ":" + prompt)) //nolint:gosec
	h, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
	return h
}

func (m *Mock) generate(prompt, hint string) string {
	h := m.hash(prompt)
	hint = strings.ToLower(hint)
	lp := strings.ToLower(prompt)

	switch {
	case strings.Contains(hint, "rewrite") || strings.Contains(lp, "formal") || strings.Contains(lp, "casual"):
		return fmt.Sprintf("%s %s %s %s the desired outcome.",
			pick(mockOpeners, h), pick(mockAdjectives, h>>4), pick(mockNouns, h>>12), pick(mockVerbs, h>>8))
	case strings.Contains(hint, "complete") || strings.Contains(lp, "continue"):
		return pick(mockContinuation, h)
	case strings.Contains(hint, "summar"):
		return pick(mockSummaries, h)
	case strings.Contains(hint, "explain"):
		return pick(mockExplanations, h)
	case strings.Contains(lp, "query") && strings.Contains(lp, "items"):
		return mockRanking(prompt, h)
	default:
		return fmt.Sprintf("Mock response %d", h%1000)
	}
}

// mockRanking emits "<id> <score>" lines for every "ID: x" in the prompt.
func mockRanking(prompt string, h uint64) string {
	var ids []string
	for _, m := range mockItemID.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		for i := range 5 {
			ids = append(ids, fmt.Sprintf("item_%d", i))
		}
	}

	lines := make([]string, len(ids))
	for i, id := range ids {
		score := 95 - i*15 + int((h+uint64(i))%20)
		score = max(0, min(100, score))
		lines[i] = fmt.Sprintf("%s %d", id, score)
	}
	return strings.Join(lines, "\n")
}

func pick(options []string, h uint64) string {
	return options[h%uint64(len(options))]
}
