package schema

import (
	"fmt"

	"github.com/roach88/specql/internal/ir"
)

// Registry holds the canonical table definitions of one configured schema.
// A Registry is immutable once built; re-defining builds a new one.
type Registry struct {
	tables []ir.TableDef
	index  map[string]int
	public []ir.PublicTable
	hash   string
}

// NewRegistry indexes tables and derives the public schema.
func NewRegistry(tables []ir.TableDef) (*Registry, error) {
	r := &Registry{
		tables: cloneTables(tables),
		index:  make(map[string]int, len(tables)),
	}
	for i, t := range r.tables {
		if _, dup := r.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		r.index[t.Name] = i
	}
	for _, t := range r.tables {
		for _, j := range t.Joins {
			if _, ok := r.index[j.Target]; !ok {
				return nil, &DefinitionError{
					Code:    ErrUnknownJoinTarget,
					Table:   t.Name,
					Target:  j.Target,
					Field:   t.Name + ".joins",
					Message: fmt.Sprintf("table %q joins unknown table %q", t.Name, j.Target),
				}
			}
			if _, ok := r.index[j.Via]; j.Via != "" && !ok {
				return nil, &DefinitionError{
					Code:    ErrUnknownViaTable,
					Table:   t.Name,
					Target:  j.Via,
					Field:   t.Name + ".joins",
					Message: fmt.Sprintf("join from %q to %q goes through unknown table %q", t.Name, j.Target, j.Via),
				}
			}
		}
	}

	hash, err := ir.SchemaHash(r.tables)
	if err != nil {
		return nil, err
	}
	r.hash = hash
	r.public = derivePublic(r.tables, r.index)
	return r, nil
}

// Build normalizes raw definitions fail-fast and returns the registry.
func Build(defs ir.IRValue) (*Registry, error) {
	tables, errs := Normalize(defs, FailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return NewRegistry(tables)
}

// Table returns the definition of the named table.
func (r *Registry) Table(name string) (*ir.TableDef, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	t := cloneTable(r.tables[i])
	return &t, true
}

// Has reports whether the named table is defined.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Tables returns every definition in declaration order.
func (r *Registry) Tables() []ir.TableDef {
	return cloneTables(r.tables)
}

// Len returns the number of defined tables.
func (r *Registry) Len() int {
	return len(r.tables)
}

// Hash returns the content hash of the definitions.
func (r *Registry) Hash() string {
	return r.hash
}

// PublicSchema returns a snapshot of the visible schema.
// The snapshot is a copy; mutating it does not affect the registry.
func (r *Registry) PublicSchema() []ir.PublicTable {
	out := make([]ir.PublicTable, len(r.public))
	for i, t := range r.public {
		out[i] = ir.PublicTable{
			Name:    t.Name,
			Alias:   t.Alias,
			Columns: append([]ir.ColumnDef{}, t.Columns...),
			Joins:   append([]ir.JoinDef{}, t.Joins...),
		}
	}
	return out
}

// derivePublic drops hidden tables, hidden columns, hidden joins and joins
// that target a hidden table. A join through a hidden via table stays
// visible without its via table or keys, which describe the hidden hops.
func derivePublic(tables []ir.TableDef, index map[string]int) []ir.PublicTable {
	public := make([]ir.PublicTable, 0, len(tables))
	for _, t := range tables {
		if t.Hidden {
			continue
		}

		pt := ir.PublicTable{
			Name:    t.Name,
			Alias:   t.Alias,
			Columns: []ir.ColumnDef{},
			Joins:   []ir.JoinDef{},
		}
		for _, c := range t.Columns {
			if !c.Hidden {
				pt.Columns = append(pt.Columns, c)
			}
		}
		for _, j := range t.Joins {
			if j.Hidden || tables[index[j.Target]].Hidden {
				continue
			}
			if j.Via != "" && tables[index[j.Via]].Hidden {
				j.Via, j.SourceKey, j.TargetKey = "", "", ""
			}
			pt.Joins = append(pt.Joins, j)
		}
		public = append(public, pt)
	}
	return public
}

func cloneTables(tables []ir.TableDef) []ir.TableDef {
	out := make([]ir.TableDef, len(tables))
	for i, t := range tables {
		out[i] = cloneTable(t)
	}
	return out
}

func cloneTable(t ir.TableDef) ir.TableDef {
	t.Columns = append([]ir.ColumnDef{}, t.Columns...)
	t.Joins = append([]ir.JoinDef{}, t.Joins...)
	return t
}
