package queryir

import (
	"fmt"

	"github.com/roach88/specql/internal/ir"
)

// ValidationResult contains the structural problems found in a query.
type ValidationResult struct {
	// IsValid indicates that the query can be rendered as-is.
	IsValid bool

	// Problems lists every violated structural rule.
	// Empty when IsValid is true.
	Problems []string
}

// Validate checks the structural rules every resolved query must satisfy:
//  1. A root join node exists and has no predicate
//  2. Every other node has a predicate whose sides reference its parent and itself
//  3. Aliases are unique within the query
//  4. Every column reference names an alias present in the tree
//  5. Join types are inner or left
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{
		problems: []string{},
		aliases:  make(map[string]bool),
	}
	v.validateQuery(q)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	aliases  map[string]bool
}

// addProblem appends a problem message.
func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	if q == nil || q.Root == nil {
		v.addProblem("query has no root table")
		return
	}
	if q.Root.On != nil {
		v.addProblem("root table %q must not have a join predicate", q.Root.Alias)
	}

	v.validateNode(nil, q.Root)

	for i, p := range q.Projections {
		if p.Expr == nil {
			v.addProblem("projection %d has no expression", i)
			continue
		}
		v.validateExpr(i, p.Expr)
	}
}

func (v *validator) validateNode(parent, n *JoinNode) {
	if n.Table == "" || n.Alias == "" {
		v.addProblem("join node %q needs a table and an alias", n.ID)
	}
	if v.aliases[n.Alias] {
		v.addProblem("alias %q is used more than once", n.Alias)
	}
	v.aliases[n.Alias] = true

	if parent != nil {
		switch {
		case n.On == nil:
			v.addProblem("join to %q has no predicate", n.Alias)
		case n.On.Left.Alias != parent.Alias || n.On.Right.Alias != n.Alias:
			v.addProblem("join to %q must compare %s to %s, got %s = %s",
				n.Alias, parent.Alias, n.Alias, n.On.Left.Alias, n.On.Right.Alias)
		}
		if !ir.ValidJoinTypes[n.Type] {
			v.addProblem("join to %q has invalid type %q", n.Alias, n.Type)
		}
	}

	for _, child := range n.Children {
		v.validateNode(n, child)
	}
}

func (v *validator) validateExpr(i int, e Expr) {
	switch expr := e.(type) {
	case Column:
		if !v.aliases[expr.Alias] {
			v.addProblem("projection %d references unknown alias %q", i, expr.Alias)
		}
	case Literal:
		if expr.Value == nil {
			v.addProblem("projection %d has an empty literal", i)
		}
	case Call:
		if expr.Func == "" {
			v.addProblem("projection %d calls a function with no name", i)
		}
		for _, arg := range expr.Args {
			v.validateExpr(i, arg)
		}
	default:
		v.addProblem("projection %d has unknown expression type %T", i, e)
	}
}
