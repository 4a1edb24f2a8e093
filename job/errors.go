package job

import "fmt"

// ValidationError is raised by Decode and Validate. It carries the
// offending field name so callers can surface a precise, non-retryable
// VALIDATION_ERROR result without string-parsing a generic error message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
