package queryir

import "github.com/roach88/specql/internal/ir"

// Query is a fully resolved query.
//
// Semantics:
//
//	SELECT <projections> FROM <root> <joins in pre-order>
//
// An empty projection list selects every column.
type Query struct {
	Root        *JoinNode
	Projections []Projection
}

// JoinNode is one table occurrence in the join tree.
//
// Example:
//
//	&JoinNode{
//	  Table: "orders", Alias: "o",
//	  Children: []*JoinNode{{
//	    Table: "customers", Alias: "customers", Type: ir.JoinInner,
//	    On: &Equals{
//	      Left:  ColumnRef{Alias: "o", Column: "customer_id"},
//	      Right: ColumnRef{Alias: "customers", Column: "id"},
//	    },
//	  }},
//	}
//
// Translates to SQL:
//
//	FROM orders AS o INNER JOIN customers ON o.customer_id = customers.id
type JoinNode struct {
	ID        string      // Caller-supplied id; generated for synthetic nodes
	Table     string      // Table name
	Alias     string      // Alias used in this query, unique within it
	Type      ir.JoinType // Ignored for the root
	On        *Equals     // nil for the root
	Synthetic bool        // Inserted by via expansion, not requested by the caller
	Children  []*JoinNode
}

// Walk visits n and its descendants in pre-order, the order joins are emitted.
// Returning false from fn stops the walk.
func (n *JoinNode) Walk(fn func(*JoinNode) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Nodes returns n and its descendants in pre-order.
func (n *JoinNode) Nodes() []*JoinNode {
	var out []*JoinNode
	n.Walk(func(node *JoinNode) bool {
		out = append(out, node)
		return true
	})
	return out
}

// ColumnRef names a column through a table alias.
type ColumnRef struct {
	Alias  string
	Column string
}

// Equals is an equi-join predicate: Left = Right.
// Left always references the source (parent) node, Right the joined node.
type Equals struct {
	Left  ColumnRef
	Right ColumnRef
}

// Expr represents a value expression in a projection.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Column references a column of a join node.
type Column struct {
	Alias string // Alias of the owning join node
	Name  string
}

func (Column) exprNode() {}

// Literal is a constant value. Strings are quoted at render time.
type Literal struct {
	Value ir.IRValue
}

func (Literal) exprNode() {}

// Call applies a SQL function to arguments.
//
// Example:
//
//	Call{Func: "SUM", Args: []Expr{Call{Func: "ROUND", Args: []Expr{Column{Alias: "o", Name: "amount"}}}}}
//
// Translates to SQL:
//
//	SUM(ROUND(o.amount))
type Call struct {
	Func string // Uppercased function name
	Args []Expr
}

func (Call) exprNode() {}

// Projection is one output term of the SELECT list.
type Projection struct {
	Expr  Expr
	Alias string // Empty when the expression is unaliased
}
