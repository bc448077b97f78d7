package harness

import (
	"fmt"

	"github.com/roach88/specql/internal/queryir"
)

// CheckPlan verifies the via-expansion properties of a compiled plan.
// Structural checks (alias uniqueness, predicate shape) belong to
// queryir.Validate and are already enforced by the compiler.
//
// Properties checked:
//   - A synthetic (via) node joins exactly one table, which is not itself synthetic
//   - No projection reads a column through a synthetic node
func CheckPlan(q *queryir.Query) []string {
	if q == nil || q.Root == nil {
		return []string{"plan has no root"}
	}

	var problems []string
	synthetic := map[string]bool{}
	q.Root.Walk(func(n *queryir.JoinNode) bool {
		if !n.Synthetic {
			return true
		}
		synthetic[n.Alias] = true
		switch {
		case len(n.Children) != 1:
			problems = append(problems, fmt.Sprintf("via table %s joins %d tables, want 1", n.Alias, len(n.Children)))
		case n.Children[0].Synthetic:
			problems = append(problems, fmt.Sprintf("via table %s leads to another via table %s", n.Alias, n.Children[0].Alias))
		}
		return true
	})

	for i, p := range q.Projections {
		for _, alias := range columnAliases(p.Expr) {
			if synthetic[alias] {
				problems = append(problems, fmt.Sprintf("projection %d reads through via table %s", i, alias))
			}
		}
	}
	return problems
}

// columnAliases returns the aliases of every column referenced by e.
func columnAliases(e queryir.Expr) []string {
	switch expr := e.(type) {
	case queryir.Column:
		return []string{expr.Alias}
	case queryir.Call:
		var out []string
		for _, arg := range expr.Args {
			out = append(out, columnAliases(arg)...)
		}
		return out
	}
	return nil
}
