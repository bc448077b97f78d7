package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Case     string // Inspected case, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled SQL of the case for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Case != "" {
		fmt.Fprintf(&buf, " (case %s)", e.Case)
	}
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.SQL != "" {
		fmt.Fprintf(&buf, "  SQL: %s\n", e.SQL)
	}
	return buf.String()
}

// AssertionContext provides what assertions need beyond the case results.
type AssertionContext struct {
	Compiler *compiler.Compiler
}

// EvaluateAssertions runs all assertions against the result.
// Returns a list of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string
	for _, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertSameQueryID:
		return assertSameQueryID(result, a)
	case AssertPublicTables, AssertHidden:
		public, err := actx.Compiler.PublicSchema()
		if err != nil {
			return &AssertionError{Type: a.Type, Expected: "public schema", Actual: err.Error()}
		}
		if a.Type == AssertPublicTables {
			return assertPublicTables(public, a)
		}
		return assertHidden(public, a)
	}

	cr, ok := result.Case(a.Case)
	if !ok || cr.plan == nil {
		actual := "case did not compile"
		if ok && cr.Error != "" {
			actual = cr.Error
		}
		return &AssertionError{Type: a.Type, Case: a.Case, Expected: "a compiled plan", Actual: actual}
	}

	switch a.Type {
	case AssertSQLContains:
		if !strings.Contains(cr.SQL, a.Text) {
			return &AssertionError{Type: a.Type, Case: a.Case, Expected: fmt.Sprintf("SQL containing %q", a.Text), Actual: "not found", SQL: cr.SQL}
		}
	case AssertJoinOrder:
		tables := joinTables(cr.plan)
		if !slices.Equal(tables, a.Tables) {
			return &AssertionError{Type: a.Type, Case: a.Case, Expected: fmt.Sprint(a.Tables), Actual: fmt.Sprint(tables), SQL: cr.SQL}
		}
	case AssertJoinCount:
		if n := len(joinTables(cr.plan)) - 1; n != a.Count {
			return &AssertionError{Type: a.Type, Case: a.Case, Expected: fmt.Sprintf("%d joins", a.Count), Actual: fmt.Sprintf("%d joins", n), SQL: cr.SQL}
		}
	case AssertProjectionAliases:
		aliases := projectionAliases(cr.plan)
		if !slices.Equal(aliases, a.Aliases) && !(len(aliases) == 0 && len(a.Aliases) == 0) {
			return &AssertionError{Type: a.Type, Case: a.Case, Expected: fmt.Sprint(a.Aliases), Actual: fmt.Sprint(aliases), SQL: cr.SQL}
		}
	}
	return nil
}

func assertSameQueryID(result *Result, a Assertion) error {
	var first string
	for i, name := range a.Cases {
		cr, ok := result.Case(name)
		if !ok || cr.QueryID == "" {
			return &AssertionError{Type: a.Type, Case: name, Expected: "a compiled query id", Actual: "case did not compile"}
		}
		if i == 0 {
			first = cr.QueryID
			continue
		}
		if cr.QueryID != first {
			return &AssertionError{
				Type:     a.Type,
				Case:     name,
				Expected: fmt.Sprintf("query id %s (case %s)", first, a.Cases[0]),
				Actual:   cr.QueryID,
			}
		}
	}
	return nil
}

func assertPublicTables(public []ir.PublicTable, a Assertion) error {
	names := make([]string, len(public))
	for i, t := range public {
		names[i] = t.Name
	}
	if !slices.Equal(names, a.Tables) && !(len(names) == 0 && len(a.Tables) == 0) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Tables), Actual: fmt.Sprint(names)}
	}
	return nil
}

// assertHidden checks that each name ("table" or "table.column") is absent
// from the public schema. A hidden table must not appear as a table, a join
// target or a via table.
func assertHidden(public []ir.PublicTable, a Assertion) error {
	var visible []string
	for _, name := range a.Names {
		if exposed(public, name) {
			visible = append(visible, name)
		}
	}
	if len(visible) > 0 {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("hidden %v", a.Names), Actual: fmt.Sprintf("visible %v", visible)}
	}
	return nil
}

func exposed(public []ir.PublicTable, name string) bool {
	table, column, hasColumn := strings.Cut(name, ".")
	for _, t := range public {
		if hasColumn {
			if t.Name == table && slices.ContainsFunc(t.Columns, func(c ir.ColumnDef) bool { return c.Name == column }) {
				return true
			}
			continue
		}
		if t.Name == table {
			return true
		}
		for _, j := range t.Joins {
			if j.Target == table || j.Via == table {
				return true
			}
		}
	}
	return false
}

// joinTables returns the table names of the join tree in pre-order.
func joinTables(q *queryir.Query) []string {
	var tables []string
	for _, n := range q.Root.Nodes() {
		tables = append(tables, n.Table)
	}
	return tables
}

// projectionAliases returns the output name of every projection.
// Unaliased columns are named by the column itself.
func projectionAliases(q *queryir.Query) []string {
	aliases := make([]string, 0, len(q.Projections))
	for _, p := range q.Projections {
		name := p.Alias
		if name == "" {
			if col, ok := p.Expr.(queryir.Column); ok {
				name = col.Name
			}
		}
		aliases = append(aliases, name)
	}
	return aliases
}
