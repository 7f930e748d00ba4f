package domain

import (
	"maps"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = newValidator()

// newValidator builds the shared validator and registers the task_type rule
// so struct tags can reject names outside the closed task set.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("task_type", func(fl validator.FieldLevel) bool {
		return TaskType(fl.Field().String()).Valid()
	})
	return v
}

// cloneMetrics creates a copy of a metric map to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	result := make(map[string]float64, len(m))
	maps.Copy(result, m)
	return result
}
