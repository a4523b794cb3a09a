package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for record, file, and extraction level failures.
var (
	ErrMissingIdentity = errors.New("missing identity field")
	ErrEmptyContent    = errors.New("empty content")
	ErrUnknownSource   = errors.New("unknown source type")
	ErrMalformedFile   = errors.New("malformed input file")
	ErrNoHeaderRow     = errors.New("no header row on first page")
	ErrNoSnapshot      = errors.New("no snapshot found")

	ErrQuestionTooShort  = errors.New("question too short")
	ErrQuestionInjection = errors.New("question contains suspicious content")
)

// ValidationError wraps a sentinel with context.
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
