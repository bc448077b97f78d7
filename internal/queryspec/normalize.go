// Package queryspec normalizes loosely-shaped query requests into a
// canonical ir.QuerySpec.
package queryspec

import (
	"fmt"

	"github.com/roach88/specql/internal/ir"
)

// Recognised top-level keys. The first present spelling wins; every other
// key (where, group_by, ...) is dropped.
var (
	fromKeys   = []string{"from"}
	joinKeys   = []string{"join", "joins"}
	selectKeys = []string{"select", "selects", "columns"}
)

// Normalize converts a raw query request into a canonical QuerySpec.
// The root table (from, else the first join entry) is always Joins[0].
func Normalize(spec ir.IRValue) (*ir.QuerySpec, error) {
	obj, err := specObject(spec)
	if err != nil {
		return nil, err
	}

	q := &ir.QuerySpec{
		Joins:   []ir.JoinSpec{},
		Selects: []ir.SelectSpec{},
	}

	if v, key, ok := obj.First(joinKeys...); ok {
		for i, entry := range entries(v) {
			js, err := joinEntry(fmt.Sprintf("%s[%d]", key, i), entry)
			if err != nil {
				return nil, err
			}
			q.Joins = append(q.Joins, js)
		}
	}

	if v, _, ok := obj.First(fromKeys...); ok && !ir.IsNull(v) {
		root, err := joinEntry("from", v)
		if err != nil {
			return nil, err
		}
		q.Joins = append([]ir.JoinSpec{root}, q.Joins...)
	}

	if len(q.Joins) == 0 {
		return nil, &SpecError{
			Code:    ErrEmptySpec,
			Field:   "from",
			Message: "query names no table: give from or at least one join",
		}
	}

	if v, key, ok := obj.First(selectKeys...); ok {
		for i, entry := range entries(v) {
			sel, err := selectEntry(fmt.Sprintf("%s[%d]", key, i), entry)
			if err != nil {
				return nil, err
			}
			q.Selects = append(q.Selects, sel)
		}
	}

	return q, nil
}

func specObject(spec ir.IRValue) (ir.IRObject, error) {
	switch v := spec.(type) {
	case nil, ir.IRNull:
		return nil, &SpecError{Code: ErrEmptySpec, Field: "spec", Message: "no query specification given"}
	case ir.IRObject:
		if len(v) == 0 {
			return nil, &SpecError{Code: ErrEmptySpec, Field: "spec", Message: "query specification is empty"}
		}
		return v, nil
	default:
		return nil, shapeError("spec", "query specification must be an object, got %s", ir.TypeName(spec))
	}
}

// entries wraps a lone value into a one-element list. Null is no entries.
func entries(v ir.IRValue) []ir.IRValue {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil
	case ir.IRArray:
		return val
	default:
		return []ir.IRValue{v}
	}
}

// listOf wraps a non-array value into a one-element list.
func listOf(v ir.IRValue) ir.IRArray {
	if arr, ok := v.(ir.IRArray); ok {
		return arr
	}
	return ir.IRArray{v}
}

func joinEntry(field string, v ir.IRValue) (ir.JoinSpec, error) {
	switch val := v.(type) {
	case ir.IRString:
		return ir.JoinSpec{Table: string(val)}, nil
	case ir.IRObject:
		js := ir.JoinSpec{}
		var err error
		if js.ID, err = text(field+".id", val, "id"); err != nil {
			return js, err
		}
		if js.Table, err = text(field+".table", val, "table", "name"); err != nil {
			return js, err
		}
		if js.Alias, err = text(field+".alias", val, "alias"); err != nil {
			return js, err
		}
		if js.ParentID, err = text(field+".parent", val, "parent", "parent_id", "parentId"); err != nil {
			return js, err
		}
		if js.Table == "" {
			return js, shapeError(field, "join entry requires a table")
		}
		return js, nil
	default:
		return ir.JoinSpec{}, shapeError(field, "join entry must be a table name or object, got %s", ir.TypeName(v))
	}
}

func selectEntry(field string, v ir.IRValue) (ir.SelectSpec, error) {
	switch val := v.(type) {
	case ir.IRString:
		return ir.SelectSpec{Name: string(val)}, nil
	case ir.IRObject:
		return selectObject(field, val)
	default:
		return ir.SelectSpec{}, shapeError(field, "select entry must be a column name or object, got %s", ir.TypeName(v))
	}
}

func selectObject(field string, obj ir.IRObject) (ir.SelectSpec, error) {
	sel := ir.SelectSpec{}
	var err error
	if sel.Name, err = text(field+".name", obj, "name", "column"); err != nil {
		return sel, err
	}
	if sel.JoinID, err = text(field+".join", obj, "join", "join_id", "joinId"); err != nil {
		return sel, err
	}
	if sel.Table, err = text(field+".table", obj, "table"); err != nil {
		return sel, err
	}
	if sel.As, err = text(field+".as", obj, "as", "alias"); err != nil {
		return sel, err
	}

	if v, ok := obj.Get("value"); ok && !ir.IsNull(v) {
		switch v.(type) {
		case ir.IRString, ir.IRInt, ir.IRNumber, ir.IRBool:
			sel.Value = v
		default:
			return sel, shapeError(field+".value", "literal value must be a string, number or bool, got %s", ir.TypeName(v))
		}
	}

	if sel.Name == "" && sel.Value == nil {
		return sel, shapeError(field, "select entry requires a column name or a literal value")
	}

	if sel.Functions, err = functions(field, obj); err != nil {
		return sel, err
	}
	return sel, nil
}

// functions reads function|functions with the select-level args list bound
// positionally: args[i] belongs to functions[i].
func functions(field string, obj ir.IRObject) ([]ir.FunctionCall, error) {
	fv, fkey, ok := obj.First("function", "functions")
	if !ok || ir.IsNull(fv) {
		return nil, nil
	}

	var args ir.IRArray
	if av, ok := obj.Get("args"); ok && !ir.IsNull(av) {
		args = listOf(av)
	}

	var calls []ir.FunctionCall
	for i, entry := range entries(fv) {
		entryField := fmt.Sprintf("%s.%s[%d]", field, fkey, i)
		call := ir.FunctionCall{}

		switch e := entry.(type) {
		case ir.IRString:
			call.Name = string(e)
		case ir.IRObject:
			name, err := text(entryField+".name", e, "name")
			if err != nil {
				return nil, err
			}
			call.Name = name
			if av, ok := e.Get("args"); ok && !ir.IsNull(av) {
				call.Args = listOf(av)
			}
		default:
			return nil, shapeError(entryField, "function must be a name or object, got %s", ir.TypeName(entry))
		}
		if call.Name == "" {
			return nil, shapeError(entryField, "function requires a name")
		}
		if !ir.IsIdentifier(call.Name) {
			return nil, shapeError(entryField, "function name %q is not a plain identifier", call.Name)
		}

		if call.Args == nil && i < len(args) && !ir.IsNull(args[i]) {
			call.Args = listOf(args[i])
		}
		for j, a := range call.Args {
			switch a.(type) {
			case ir.IRString, ir.IRInt, ir.IRNumber, ir.IRBool, ir.IRNull:
			default:
				return nil, shapeError(fmt.Sprintf("%s.args[%d]", entryField, j), "argument must be a literal, got %s", ir.TypeName(a))
			}
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// text reads the first present key as a scalar string; absent or null is "".
func text(field string, obj ir.IRObject, keys ...string) (string, error) {
	v, _, ok := obj.First(keys...)
	if !ok || ir.IsNull(v) {
		return "", nil
	}
	s, ok := ir.Text(v)
	if !ok {
		return "", shapeError(field, "must be a string, got %s", ir.TypeName(v))
	}
	return s, nil
}
