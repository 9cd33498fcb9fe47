package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": v.errors}
	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// RequiredUUID checks if a string is a valid non-nil UUID.
func (v *Validator) RequiredUUID(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return v
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		v.AddError(field, "must be a valid UUID")
		return v
	}
	if parsed == uuid.Nil {
		v.AddError(field, "must not be empty")
	}
	return v
}

// Range checks if a number is within [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// Min checks if a number meets a minimum value.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// OneOf checks if a value is one of the allowed values. Empty is skipped.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// ParseUUID validates and parses a UUID string.
func ParseUUID(field, value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, errors.Validation(fmt.Sprintf("%s is required", field))
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Validation(fmt.Sprintf("%s must be a valid UUID", field))
	}
	return id, nil
}
