package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a field-level or cross-field rule violation.
// Field names the offending field; Raw carries the value as received.
type ValidationError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s (got %q)", e.Field, e.Reason, e.Raw)
}

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, raw, reason string) *ValidationError {
	return &ValidationError{Field: field, Raw: raw, Reason: reason}
}

// OCRError reports a failure of the OCR collaborator.
type OCRError struct {
	Err error
}

func (e *OCRError) Error() string { return fmt.Sprintf("ocr: %v", e.Err) }
func (e *OCRError) Unwrap() error { return e.Err }

// ProviderError reports a failure of the language-model collaborator.
// Transient errors (gateway failures, rate limits, network trouble) are
// retried by the pipeline; permanent errors propagate immediately.
type ProviderError struct {
	Err       error
	Transient bool
}

func (e *ProviderError) Error() string {
	if e.Transient {
		return fmt.Sprintf("provider (transient): %v", e.Err)
	}
	return fmt.Sprintf("provider: %v", e.Err)
}
func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// ParsingError reports model output that could not be decoded into the
// expected structure.
type ParsingError struct {
	Err error
}

func (e *ParsingError) Error() string { return fmt.Sprintf("parsing: %v", e.Err) }
func (e *ParsingError) Unwrap() error { return e.Err }

// StorageError reports a persistence failure, including natural-key conflicts.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
