package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/schema"
)

// Lint codes reported by Validate in addition to the schema.DefinitionError
// codes (E201-E204).
const (
	ErrUnresolvableVia = "E205" // neither side of a via hop declares a relationship
	ErrUndeclaredKey   = "E206" // join key missing from a table that lists its columns
	ErrViaCycleLint    = "E207" // via expansion never reaches a direct relationship
)

// ValidationError represents one problem found in a set of definitions.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks raw definitions and returns every problem found.
// It does not fail fast and it does not change the compiler's definitions.
//
// Definitions that Define would reject are reported with their
// DefinitionError codes. Definitions that Define accepts may still
// produce lint findings for joins that can never resolve at query time.
func Validate(defs ir.IRValue) []ValidationError {
	tables, errs := schema.Normalize(defs, schema.CollectAll)

	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var de *schema.DefinitionError
		if errors.As(err, &de) {
			out = append(out, ValidationError{Field: de.Field, Message: de.Message, Code: de.Code})
			continue
		}
		out = append(out, ValidationError{Field: "definitions", Message: err.Error(), Code: schema.ErrInvalidShape})
	}

	out = append(out, lintJoins(tables)...)
	for _, w := range AnalyzeViaCycles(tables) {
		out = append(out, ValidationError{Field: "joins", Message: w.Message, Code: ErrViaCycleLint})
	}
	return out
}

// lintJoins reports joins whose keys or via hops cannot be satisfied.
func lintJoins(tables []ir.TableDef) []ValidationError {
	index := make(map[string]*ir.TableDef, len(tables))
	for i := range tables {
		index[tables[i].Name] = &tables[i]
	}

	var errs []ValidationError
	for i := range tables {
		t := &tables[i]
		for _, j := range t.Joins {
			field := fmt.Sprintf("%s.joins.%s", t.Name, j.Target)
			target, ok := index[j.Target]
			if !ok {
				continue
			}

			if j.Via != "" {
				via := index[j.Via]
				if via == nil {
					continue
				}
				if !hopResolvable(t, via) {
					errs = append(errs, ValidationError{
						Field:   field + ".via",
						Message: fmt.Sprintf("neither %q nor %q declares a join to the other", t.Name, via.Name),
						Code:    ErrUnresolvableVia,
					})
				}
				if !hopResolvable(via, target) {
					errs = append(errs, ValidationError{
						Field:   field + ".via",
						Message: fmt.Sprintf("neither %q nor %q declares a join to the other", via.Name, target.Name),
						Code:    ErrUnresolvableVia,
					})
				}
				continue
			}

			if !hasKey(t, j.SourceKey) {
				errs = append(errs, ValidationError{
					Field:   field + ".source_key",
					Message: fmt.Sprintf("column %q is not declared on %q", j.SourceKey, t.Name),
					Code:    ErrUndeclaredKey,
				})
			}
			if !hasKey(target, j.TargetKey) {
				errs = append(errs, ValidationError{
					Field:   field + ".target_key",
					Message: fmt.Sprintf("column %q is not declared on %q", j.TargetKey, target.Name),
					Code:    ErrUndeclaredKey,
				})
			}
		}
	}
	return errs
}

// hopResolvable mirrors the resolver's lookup for via hops: a forward join,
// or a direct join declared in the other direction.
func hopResolvable(source, target *ir.TableDef) bool {
	if _, ok := source.Join(target.Name); ok {
		return true
	}
	back, ok := target.Join(source.Name)
	return ok && back.Via == ""
}

// hasKey reports whether key is a column of t. Tables without declared
// columns accept any key.
func hasKey(t *ir.TableDef, key string) bool {
	if len(t.Columns) == 0 {
		return true
	}
	_, ok := t.Column(key)
	return ok
}
