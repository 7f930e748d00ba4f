package candidate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahrav/promptlab/internal/domain"
)

var (
	// ErrUnknownPlaceholder indicates a template names a value that is not available.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")

	// ErrMalformedTemplate indicates an unbalanced or empty brace in a template.
	ErrMalformedTemplate = errors.New("malformed template")
)

// Render substitutes {name} placeholders in template with values.
// "{{" and "}}" produce literal braces.
func Render(template string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(template[i+1:], "{}")
			if end < 0 || template[i+1+end] != '}' {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := template[i+1 : i+1+end]
			if name == "" {
				return "", fmt.Errorf("%w: empty placeholder at offset %d", ErrMalformedTemplate, i)
			}
			v, ok := values[name]
			if !ok {
				return "", fmt.Errorf("%w: {%s}", ErrUnknownPlaceholder, name)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// RenderUser renders the candidate's user template for one example.
func RenderUser(c domain.PromptCandidate, ex domain.DatasetExample) (string, error) {
	return Render(c.UserPrompt, map[string]string{PlaceholderText: ex.InputText})
}
