package schema

import (
	"errors"
	"fmt"
)

// Definition error codes (E200-E209)
const (
	ErrUnknownJoinTarget = "E201" // join names a table that is not defined
	ErrUnknownViaTable   = "E202" // via names a table that is not defined
	ErrInvalidShape      = "E203" // value has the wrong shape
	ErrInvalidJoinType   = "E204" // join type is not inner or left
)

// LoadMode controls how errors are handled during normalization.
type LoadMode int

const (
	// FailFast stops on the first error encountered.
	FailFast LoadMode = iota
	// CollectAll collects all errors before returning.
	CollectAll
)

// DefinitionError reports an invalid table definition.
// Definition errors are configuration errors: they surface at define time,
// never at query time.
type DefinitionError struct {
	Code    string `json:"code"`
	Table   string `json:"table,omitempty"`
	Target  string `json:"target,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsDefinitionError reports whether err is or wraps a DefinitionError.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}
