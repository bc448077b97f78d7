package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/specql/internal/ir"
)

func validQuery() *Query {
	customers := &JoinNode{
		Table: "customers",
		Alias: "customers",
		Type:  ir.JoinInner,
		On: &Equals{
			Left:  ColumnRef{Alias: "o", Column: "customer_id"},
			Right: ColumnRef{Alias: "customers", Column: "id"},
		},
	}
	return &Query{
		Root: &JoinNode{Table: "orders", Alias: "o", Children: []*JoinNode{customers}},
		Projections: []Projection{
			{Expr: Column{Alias: "o", Name: "amount"}},
			{Expr: Call{Func: "UPPER", Args: []Expr{Column{Alias: "customers", Name: "name"}}}, Alias: "name_upper"},
			{Expr: Literal{Value: ir.IRInt(1)}, Alias: "one"},
		},
	}
}

func TestValidateValidQuery(t *testing.T) {
	result := Validate(validQuery())
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidateNilQuery(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Problems[0], "no root")
}

func TestValidateDuplicateAlias(t *testing.T) {
	q := validQuery()
	q.Root.Children[0].Alias = "o"
	q.Root.Children[0].On.Right.Alias = "o"

	result := Validate(q)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Problems, `alias "o" is used more than once`)
}

func TestValidateMissingPredicate(t *testing.T) {
	q := validQuery()
	q.Root.Children[0].On = nil

	result := Validate(q)
	assert.Contains(t, result.Problems, `join to "customers" has no predicate`)
}

func TestValidatePredicateSides(t *testing.T) {
	q := validQuery()
	q.Root.Children[0].On.Left.Alias = "x"

	result := Validate(q)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Problems[0], "must compare o to customers")
}

func TestValidateRootPredicate(t *testing.T) {
	q := validQuery()
	q.Root.On = &Equals{}

	result := Validate(q)
	assert.Contains(t, result.Problems, `root table "o" must not have a join predicate`)
}

func TestValidateUnknownAliasInProjection(t *testing.T) {
	q := validQuery()
	q.Projections = append(q.Projections, Projection{
		Expr: Call{Func: "SUM", Args: []Expr{Column{Alias: "missing", Name: "x"}}},
	})

	result := Validate(q)
	assert.Equal(t, []string{`projection 3 references unknown alias "missing"`}, result.Problems)
}

func TestValidateInvalidJoinType(t *testing.T) {
	q := validQuery()
	q.Root.Children[0].Type = "cross"

	result := Validate(q)
	assert.Contains(t, result.Problems, `join to "customers" has invalid type "cross"`)
}

func TestJoinNodeWalkPreOrder(t *testing.T) {
	root := &JoinNode{Alias: "a", Children: []*JoinNode{
		{Alias: "b", Children: []*JoinNode{{Alias: "c"}}},
		{Alias: "d"},
	}}

	var order []string
	for _, n := range root.Nodes() {
		order = append(order, n.Alias)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	var visited []string
	root.Walk(func(n *JoinNode) bool {
		visited = append(visited, n.Alias)
		return n.Alias != "b"
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}

func TestExprImplementsSealedInterface(t *testing.T) {
	exprs := []Expr{Column{}, Literal{}, Call{}}
	for _, e := range exprs {
		switch e.(type) {
		case Column, Literal, Call:
		default:
			t.Fatalf("unexpected type %T", e)
		}
	}
}
