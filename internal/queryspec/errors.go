package queryspec

import (
	"errors"
	"fmt"
)

// Specification error codes (E300-E309)
const (
	ErrEmptySpec    = "E301" // no query specification given
	ErrInvalidShape = "E302" // value has the wrong shape
)

// SpecError reports an unusable query specification.
type SpecError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsSpecError reports whether err is or wraps a SpecError.
func IsSpecError(err error) bool {
	var se *SpecError
	return errors.As(err, &se)
}

func shapeError(field, format string, args ...any) *SpecError {
	return &SpecError{Code: ErrInvalidShape, Field: field, Message: fmt.Sprintf(format, args...)}
}
