package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/specql/internal/compose"
	"github.com/roach88/specql/internal/joins"
	"github.com/roach88/specql/internal/queryspec"
	"github.com/roach88/specql/internal/schema"
)

// ErrNotDefined is the code for querying a compiler that has no definitions.
const ErrNotDefined = "E300"

// StateError reports a call the compiler cannot serve in its current state.
type StateError struct {
	Code    string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

var errNotDefined = &StateError{Code: ErrNotDefined, Message: "no table definitions; call Define first"}

// IsConfigurationError reports whether err is a problem with the table
// definitions or with the compiler's state rather than with a query.
func IsConfigurationError(err error) bool {
	var se *StateError
	return schema.IsDefinitionError(err) || errors.As(err, &se)
}

// IsSpecificationError reports whether err is a problem with a query
// specification: its shape, its joins or its selects.
func IsSpecificationError(err error) bool {
	return queryspec.IsSpecError(err) || joins.IsResolveError(err) || compose.IsComposeError(err)
}

// ErrorCode returns the stable code carried by err, or "" if err is not
// one of the coded compiler errors.
func ErrorCode(err error) string {
	var (
		de *schema.DefinitionError
		se *queryspec.SpecError
		re *joins.ResolveError
		ce *compose.ComposeError
		st *StateError
	)
	switch {
	case errors.As(err, &de):
		return de.Code
	case errors.As(err, &se):
		return se.Code
	case errors.As(err, &re):
		return re.Code
	case errors.As(err, &ce):
		return ce.Code
	case errors.As(err, &st):
		return st.Code
	}
	return ""
}
