package joins

import (
	"errors"
	"fmt"
)

// Resolution error codes (E310-E319)
const (
	ErrUnknownRootTable = "E311" // root table is not defined
	ErrMissingJoin      = "E312" // source table declares no join to the target
	ErrUnknownParent    = "E313" // parent id matches no earlier entry (strict mode)
	ErrViaCycle         = "E314" // via chain revisits a table
)

// ResolveError reports a join list that cannot be resolved against the schema.
type ResolveError struct {
	Code    string `json:"code"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsResolveError reports whether err is or wraps a ResolveError.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}
