package ir

// Placeholder marks the position of the composed expression inside a
// function's argument list.
const Placeholder = "_"

// JoinType selects the SQL join operator for a relationship.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
)

// ValidJoinTypes defines allowed join types.
var ValidJoinTypes = map[JoinType]bool{
	JoinInner: true,
	JoinLeft:  true,
}

// ColumnDef represents one declared column of a table.
type ColumnDef struct {
	Name   string `json:"name"`
	Alias  string `json:"alias,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// JoinDef represents a declared relationship from the owning table to Target.
type JoinDef struct {
	Target    string   `json:"table"`
	Alias     string   `json:"alias,omitempty"`
	SourceKey string   `json:"source_key,omitempty"` // Empty only in a public join through a hidden table
	TargetKey string   `json:"target_key,omitempty"`
	Via       string   `json:"via,omitempty"` // Intermediate table, joined through transparently
	Type      JoinType `json:"type"`
	Hidden    bool     `json:"hidden,omitempty"`
}

// TableDef is the canonical definition of one table.
// Columns and Joins keep declaration order; names are unique within each.
type TableDef struct {
	Name       string      `json:"name"`
	Alias      string      `json:"alias,omitempty"`
	PrimaryKey string      `json:"primary_key"`
	Hidden     bool        `json:"hidden,omitempty"`
	Columns    []ColumnDef `json:"columns"`
	Joins      []JoinDef   `json:"joins"`
}

// Column returns the column with the given name.
func (t *TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Join returns the relationship keyed by target table.
func (t *TableDef) Join(target string) (JoinDef, bool) {
	for _, j := range t.Joins {
		if j.Target == target {
			return j, true
		}
	}
	return JoinDef{}, false
}

// PublicTable is the externally visible view of a table.
// Hidden columns and joins are never present.
type PublicTable struct {
	Name    string      `json:"name"`
	Alias   string      `json:"alias,omitempty"`
	Columns []ColumnDef `json:"columns"`
	Joins   []JoinDef   `json:"joins"`
}

// JoinSpec is one entry of a normalized query's join list.
// Index 0 of the list is the root table.
type JoinSpec struct {
	ID       string `json:"id,omitempty"`
	Table    string `json:"table"`
	Alias    string `json:"alias,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// FunctionCall is one function wrapper applied to a select expression.
// Args may contain the Placeholder string.
type FunctionCall struct {
	Name string    `json:"name"`
	Args []IRValue `json:"args,omitempty"`
}

// SelectSpec is one entry of a normalized query's select list.
type SelectSpec struct {
	Name      string         `json:"name"`
	JoinID    string         `json:"join_id,omitempty"`
	Table     string         `json:"table,omitempty"`
	Functions []FunctionCall `json:"functions,omitempty"` // Outer-to-inner
	As        string         `json:"as,omitempty"`
	Value     IRValue        `json:"value,omitempty"` // Literal; nil when absent
}

// QuerySpec is a normalized query request.
type QuerySpec struct {
	Joins   []JoinSpec   `json:"joins"`
	Selects []SelectSpec `json:"selects"`
}

// Root returns the root join entry.
func (q *QuerySpec) Root() JoinSpec {
	return q.Joins[0]
}
