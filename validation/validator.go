package validation

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kbukum/procspec/errors"
)

// FieldError is one failed check, keyed by its configuration path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Validator collects failures for checks that struct tags cannot express,
// such as relations between sections.
//
//	err := validation.New().
//	    Extension("catalog", cfg.Catalog, config.CatalogExtensions).
//	    Custom(maxBackoff >= initial, "runner.retry.max_backoff", "must not be below initial_backoff").
//	    Validate()
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the recorded failures in the order they were added.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns nil when every check passed and an INVALID_INPUT AppError
// listing each failure otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errors)
}

// Extension checks that a non-empty path ends in one of the allowed
// extensions, compared case-insensitively.
func (v *Validator) Extension(field, path string, allowed []string) *Validator {
	if path == "" {
		return v
	}
	if !slices.Contains(allowed, strings.ToLower(filepath.Ext(path))) {
		v.AddError(field, fmt.Sprintf("must end in one of: %s", strings.Join(allowed, ", ")))
	}
	return v
}

// Custom records message for field when ok is false.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

func fieldsError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.String()
	}
	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}
