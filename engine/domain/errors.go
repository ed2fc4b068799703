package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for record validation failures.
var (
	ErrMissingID      = errors.New("record id is required")
	ErrUnknownStatus  = errors.New("unknown quotation status")
	ErrNegativeAmount = errors.New("negative amount")
	ErrBadEmail       = errors.New("malformed email")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
