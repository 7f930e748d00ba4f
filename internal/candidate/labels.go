package candidate

import (
	"regexp"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
)

var roleLabel = regexp.MustCompile(`(?i)^\s*(system|user)\s*:\s*`)

// StripRoleLabels removes leading "System:" and "User:" labels that reflection
// models tend to prepend, line by line. Lines left empty are dropped.
func StripRoleLabels(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if stripped := roleLabel.ReplaceAllString(line, ""); stripped != "" {
			kept = append(kept, stripped)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// FromComponents builds a normalized candidate from the optimizer's component
// map. Missing components become empty templates.
func FromComponents(components map[string]string) domain.PromptCandidate {
	return domain.PromptCandidate{
		SystemPrompt: StripRoleLabels(components[domain.ComponentSystemPrompt]),
		UserPrompt:   StripRoleLabels(components[domain.ComponentUserPrompt]),
	}
}
