package domain

import "fmt"

// DatasetExample is a single input for one task family.
// Examples are supplied by an external loader and are never modified by the
// engine. Reference is optional; evaluators switch weight tables on its presence.
type DatasetExample struct {
	// TaskType names the task family this example belongs to.
	TaskType TaskType `json:"task_type" validate:"required,task_type"`

	// InputText is the text substituted into the {text} placeholder.
	InputText string `json:"input_text"`

	// Reference is the optional gold output used by similarity metrics.
	Reference *string `json:"reference,omitempty"`
}

// NewExample builds an example with a reference.
func NewExample(task TaskType, input, reference string) DatasetExample {
	return DatasetExample{TaskType: task, InputText: input, Reference: &reference}
}

// NewUnreferencedExample builds an example without a reference.
func NewUnreferencedExample(task TaskType, input string) DatasetExample {
	return DatasetExample{TaskType: task, InputText: input}
}

// HasReference reports whether the example carries a non-empty reference.
// An empty reference string is treated as absent.
func (e DatasetExample) HasReference() bool {
	return e.Reference != nil && *e.Reference != ""
}

// ReferenceText returns the reference or the empty string when absent.
func (e DatasetExample) ReferenceText() string {
	if e.Reference == nil {
		return ""
	}
	return *e.Reference
}

// Validate checks the example's structural constraints.
func (e *DatasetExample) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExample, err)
	}
	return nil
}
