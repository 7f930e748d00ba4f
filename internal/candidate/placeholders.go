// Package candidate holds the rules a prompt candidate must satisfy before it
// is sent to a model: the placeholder contract, role-label normalization of
// optimizer output, template rendering and the seed prompt table.
package candidate

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
)

// PlaceholderText is the placeholder substituted with an example's input text.
const PlaceholderText = "text"

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// requiredPlaceholders lists the placeholders each task's user template must contain.
var requiredPlaceholders = map[domain.TaskType][]string{
	domain.TaskRewriteFriendly: {PlaceholderText},
	domain.TaskRewriteConcise:  {PlaceholderText},
	domain.TaskComplete:        {PlaceholderText},
	domain.TaskSummarize:       {PlaceholderText},
	domain.TaskExplain:         {PlaceholderText},
}

// RequiredPlaceholders returns the placeholders the user template of task
// must contain, sorted by name.
func RequiredPlaceholders(task domain.TaskType) []string {
	return slices.Sorted(slices.Values(requiredPlaceholders[task]))
}

// Placeholders returns the distinct placeholder names found in template,
// in order of first appearance.
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// ValidatePlaceholders checks the placeholder contract of c for task.
// It never fails loudly: a violation is reported as false with a reason the
// caller surfaces as feedback.
func ValidatePlaceholders(c domain.PromptCandidate, task domain.TaskType) (bool, string) {
	required := RequiredPlaceholders(task)
	if len(required) == 0 {
		return true, ""
	}

	found := Placeholders(c.UserPrompt)
	var missing []string
	for _, name := range required {
		if !slices.Contains(found, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return false, "Missing required placeholders in user_prompt: " + strings.Join(missing, ", ")
	}

	if slices.Contains(Placeholders(c.SystemPrompt), PlaceholderText) {
		return false, "system_prompt should not contain {text} placeholder"
	}
	return true, ""
}
