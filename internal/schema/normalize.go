package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/specql/internal/ir"
)

// DefaultPrimaryKey is used when a table declares no primary key.
const DefaultPrimaryKey = "id"

// Normalize converts raw table definitions into canonical TableDefs.
//
// defs maps table name to a raw definition. Columns may be a list of
// (string | object) or an object of name to (alias string | object); joins
// may be a list of join objects or an object of target to (object | alias
// string | true). Tables keep input order.
//
// Primary keys are resolved for every table before any join, so join key
// defaults can see the target's primary key regardless of declaration order.
func Normalize(defs ir.IRValue, mode LoadMode) ([]ir.TableDef, []error) {
	n := &normalizer{mode: mode}

	root, ok := defs.(ir.IRObject)
	if !ok {
		n.addError(&DefinitionError{
			Code:    ErrInvalidShape,
			Field:   "definitions",
			Message: fmt.Sprintf("definitions must be an object of table name to definition, got %s", ir.TypeName(defs)),
		})
		return nil, n.errs
	}

	tables := make([]ir.TableDef, 0, len(root))
	raws := make([]ir.IRObject, 0, len(root))
	n.index = make(map[string]int, len(root))

	// Pass 1: table attributes, columns, primary keys
	for _, m := range root {
		raw, ok := n.tableObject(m.Key, m.Value)
		if !ok {
			if n.stop() {
				return nil, n.errs
			}
			continue
		}

		table := n.table(m.Key, raw)
		if i, dup := n.index[m.Key]; dup {
			tables[i] = table
			raws[i] = raw
		} else {
			n.index[m.Key] = len(tables)
			tables = append(tables, table)
			raws = append(raws, raw)
		}
		if n.stop() {
			return nil, n.errs
		}
	}

	// Pass 2: joins
	for i := range tables {
		tables[i].Joins = n.joins(tables, &tables[i], raws[i])
		if n.stop() {
			return nil, n.errs
		}
	}

	if len(n.errs) > 0 {
		return nil, n.errs
	}
	return tables, nil
}

// normalizer accumulates errors during normalization.
type normalizer struct {
	mode  LoadMode
	errs  []error
	index map[string]int
}

func (n *normalizer) addError(err *DefinitionError) {
	n.errs = append(n.errs, err)
}

// stop reports whether normalization must return now.
func (n *normalizer) stop() bool {
	return n.mode == FailFast && len(n.errs) > 0
}

func (n *normalizer) shapeError(table, field, format string, args ...any) {
	n.addError(&DefinitionError{
		Code:    ErrInvalidShape,
		Table:   table,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// tableObject accepts an object or null (an empty table).
func (n *normalizer) tableObject(name string, v ir.IRValue) (ir.IRObject, bool) {
	switch val := v.(type) {
	case ir.IRObject:
		return val, true
	case nil, ir.IRNull:
		return ir.IRObject{}, true
	default:
		n.shapeError(name, name, "table definition must be an object, got %s", ir.TypeName(v))
		return nil, false
	}
}

func (n *normalizer) table(name string, raw ir.IRObject) ir.TableDef {
	table := ir.TableDef{
		Name:    name,
		Columns: []ir.ColumnDef{},
		Joins:   []ir.JoinDef{},
	}

	table.Alias = n.optionalString(name, name+".alias", raw, "alias")
	if v, ok := raw.Get("hidden"); ok {
		table.Hidden = ir.Truthy(v)
	}

	if cols, ok := raw.Get("columns"); ok {
		n.columns(&table, cols)
	}

	// Table-level primary key wins over a column flag
	if pk := n.optionalString(name, name+".primary_key", raw, "primary_key", "primaryKey"); pk != "" {
		table.PrimaryKey = pk
	}
	if table.PrimaryKey == "" {
		table.PrimaryKey = DefaultPrimaryKey
	}
	return table
}

// optionalString reads the first present key as a string; absent or null is "".
func (n *normalizer) optionalString(table, field string, obj ir.IRObject, keys ...string) string {
	v, _, ok := obj.First(keys...)
	if !ok || ir.IsNull(v) {
		return ""
	}
	s, ok := ir.Text(v)
	if !ok {
		n.shapeError(table, field, "must be a string, got %s", ir.TypeName(v))
		return ""
	}
	return s
}

func (n *normalizer) columns(table *ir.TableDef, v ir.IRValue) {
	field := table.Name + ".columns"

	switch cols := v.(type) {
	case nil, ir.IRNull:
		return
	case ir.IRString:
		putColumn(table, ir.ColumnDef{Name: string(cols)})
	case ir.IRArray:
		for i, elem := range cols {
			elemField := fmt.Sprintf("%s[%d]", field, i)
			switch c := elem.(type) {
			case ir.IRString:
				putColumn(table, ir.ColumnDef{Name: string(c)})
			case ir.IRObject:
				name := n.optionalString(table.Name, elemField+".name", c, "name")
				if name == "" {
					n.shapeError(table.Name, elemField, "column object requires a name")
					continue
				}
				n.columnObject(table, elemField, name, c)
			default:
				n.shapeError(table.Name, elemField, "column must be a string or object, got %s", ir.TypeName(elem))
			}
		}
	case ir.IRObject:
		for _, m := range cols {
			elemField := field + "." + m.Key
			switch c := m.Value.(type) {
			case nil, ir.IRNull, ir.IRBool:
				putColumn(table, ir.ColumnDef{Name: m.Key})
			case ir.IRString:
				putColumn(table, ir.ColumnDef{Name: m.Key, Alias: string(c)})
			case ir.IRObject:
				name := n.optionalString(table.Name, elemField+".name", c, "name")
				if name == "" {
					name = m.Key
				}
				n.columnObject(table, elemField, name, c)
			default:
				n.shapeError(table.Name, elemField, "column must be an alias string or object, got %s", ir.TypeName(m.Value))
			}
		}
	default:
		n.shapeError(table.Name, field, "columns must be a list or object, got %s", ir.TypeName(v))
	}
}

func (n *normalizer) columnObject(table *ir.TableDef, field, name string, obj ir.IRObject) {
	col := ir.ColumnDef{
		Name:  name,
		Alias: n.optionalString(table.Name, field+".alias", obj, "alias"),
	}
	if v, ok := obj.Get("hidden"); ok {
		col.Hidden = ir.Truthy(v)
	}
	if v, _, ok := obj.First("primary_key", "primaryKey"); ok && ir.Truthy(v) {
		table.PrimaryKey = name
	}
	putColumn(table, col)
}

// putColumn inserts col, replacing an earlier column of the same name in place.
func putColumn(table *ir.TableDef, col ir.ColumnDef) {
	for i := range table.Columns {
		if table.Columns[i].Name == col.Name {
			table.Columns[i] = col
			return
		}
	}
	table.Columns = append(table.Columns, col)
}

// putJoin inserts j, replacing an earlier join to the same target in place.
func putJoin(joins []ir.JoinDef, j ir.JoinDef) []ir.JoinDef {
	for i := range joins {
		if joins[i].Target == j.Target {
			joins[i] = j
			return joins
		}
	}
	return append(joins, j)
}

func (n *normalizer) joins(tables []ir.TableDef, table *ir.TableDef, raw ir.IRObject) []ir.JoinDef {
	out := []ir.JoinDef{}
	field := table.Name + ".joins"

	v, ok := raw.Get("joins")
	if !ok {
		return out
	}

	switch js := v.(type) {
	case nil, ir.IRNull:
	case ir.IRString:
		if j, ok := n.join(tables, table, field+"[0]", string(js), nil); ok {
			out = putJoin(out, j)
		}
	case ir.IRArray:
		for i, elem := range js {
			elemField := fmt.Sprintf("%s[%d]", field, i)
			switch e := elem.(type) {
			case ir.IRString:
				if j, ok := n.join(tables, table, elemField, string(e), nil); ok {
					out = putJoin(out, j)
				}
			case ir.IRObject:
				target := n.optionalString(table.Name, elemField+".name", e, "name", "table")
				if target == "" {
					n.shapeError(table.Name, elemField, "join object requires a name or table")
					continue
				}
				if j, ok := n.join(tables, table, elemField, target, e); ok {
					out = putJoin(out, j)
				}
			default:
				n.shapeError(table.Name, elemField, "join must be a string or object, got %s", ir.TypeName(elem))
			}
			if n.stop() {
				return out
			}
		}
	case ir.IRObject:
		for _, m := range js {
			elemField := field + "." + m.Key
			var obj ir.IRObject
			switch e := m.Value.(type) {
			case nil, ir.IRNull, ir.IRBool:
			case ir.IRString:
				obj = ir.IRObject{{Key: "alias", Value: e}}
			case ir.IRObject:
				obj = e
			default:
				n.shapeError(table.Name, elemField, "join must be an object, alias string or true, got %s", ir.TypeName(m.Value))
				continue
			}
			target := m.Key
			if obj != nil {
				if t := n.optionalString(table.Name, elemField+".name", obj, "name", "table"); t != "" {
					target = t
				}
			}
			if j, ok := n.join(tables, table, elemField, target, obj); ok {
				out = putJoin(out, j)
			}
			if n.stop() {
				return out
			}
		}
	default:
		n.shapeError(table.Name, field, "joins must be a list or object, got %s", ir.TypeName(v))
	}
	return out
}

// join builds one JoinDef. obj may be nil for shorthand declarations.
func (n *normalizer) join(tables []ir.TableDef, table *ir.TableDef, field, target string, obj ir.IRObject) (ir.JoinDef, bool) {
	targetIdx, exists := n.index[target]
	if !exists {
		n.addError(&DefinitionError{
			Code:    ErrUnknownJoinTarget,
			Table:   table.Name,
			Target:  target,
			Field:   field,
			Message: fmt.Sprintf("table %q joins unknown table %q", table.Name, target),
		})
		return ir.JoinDef{}, false
	}

	j := ir.JoinDef{
		Target:    target,
		SourceKey: table.PrimaryKey,
		TargetKey: tables[targetIdx].PrimaryKey,
		Type:      ir.JoinInner,
	}
	if obj == nil {
		return j, true
	}

	j.Alias = n.optionalString(table.Name, field+".alias", obj, "alias")
	if k := n.optionalString(table.Name, field+".source_key", obj, "source_key", "sourceKey"); k != "" {
		j.SourceKey = k
	}
	if k := n.optionalString(table.Name, field+".target_key", obj, "target_key", "targetKey"); k != "" {
		j.TargetKey = k
	}
	if v, ok := obj.Get("hidden"); ok {
		j.Hidden = ir.Truthy(v)
	}

	if via := n.optionalString(table.Name, field+".via", obj, "via"); via != "" {
		if _, ok := n.index[via]; !ok {
			n.addError(&DefinitionError{
				Code:    ErrUnknownViaTable,
				Table:   table.Name,
				Target:  via,
				Field:   field + ".via",
				Message: fmt.Sprintf("join from %q to %q goes through unknown table %q", table.Name, target, via),
			})
			return ir.JoinDef{}, false
		}
		j.Via = via
	}

	if t := n.optionalString(table.Name, field+".type", obj, "type"); t != "" {
		jt := ir.JoinType(strings.ToLower(t))
		if !ir.ValidJoinTypes[jt] {
			n.addError(&DefinitionError{
				Code:    ErrInvalidJoinType,
				Table:   table.Name,
				Target:  target,
				Field:   field + ".type",
				Message: fmt.Sprintf("join type must be inner or left, got %q", t),
			})
			return ir.JoinDef{}, false
		}
		j.Type = jt
	}
	return j, true
}
