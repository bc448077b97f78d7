package compose

import (
	"errors"
	"fmt"
)

// Composition error codes (E320-E329)
const (
	ErrUnknownColumn = "E321" // column not declared and no literal given
	ErrUnknownJoinID = "E322" // join id matches no entry (strict mode)
	ErrFunctionName  = "E323" // function id or name is not a plain identifier
)

// ComposeError reports a select entry that cannot be composed.
type ComposeError struct {
	Code    string `json:"code"`
	Column  string `json:"column,omitempty"`
	Table   string `json:"table,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ComposeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsComposeError reports whether err is or wraps a ComposeError.
func IsComposeError(err error) bool {
	var ce *ComposeError
	return errors.As(err, &ce)
}
