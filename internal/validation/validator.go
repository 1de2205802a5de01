package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// New returns a configured validator with the workflow tags and struct-level
// rules registered.
func New() *validatorv10.Validate {
	return NewWithRegistry(workflow.Default())
}

// NewWithRegistry is New against a custom status table.
func NewWithRegistry(reg *workflow.Registry) *validatorv10.Validate {
	v := validatorv10.New()

	// workflow_status accepts only keys present in the registry.
	_ = v.RegisterValidation("workflow_status", func(fl validatorv10.FieldLevel) bool {
		return reg.Has(workflow.Status(fl.Field().String()))
	})

	v.RegisterStructValidation(transitionStructValidation, TransitionRequest{})

	return v
}

// transitionStructValidation requires a reason when an order is cancelled by hand.
func transitionStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(TransitionRequest)
	if workflow.Status(req.Status) == workflow.StatusCancelled && strings.TrimSpace(req.Notes) == "" {
		sl.ReportError(req.Notes, "notes", "Notes", "cancellation_reason", "")
	}
}
