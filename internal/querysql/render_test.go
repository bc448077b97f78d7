package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/queryir"
)

func join(parent *queryir.JoinNode, table, alias, sourceKey, targetKey string, t ir.JoinType) *queryir.JoinNode {
	n := &queryir.JoinNode{
		Table: table,
		Alias: alias,
		Type:  t,
		On: &queryir.Equals{
			Left:  queryir.ColumnRef{Alias: parent.Alias, Column: sourceKey},
			Right: queryir.ColumnRef{Alias: alias, Column: targetKey},
		},
	}
	parent.Children = append(parent.Children, n)
	return n
}

// ============================================================================
// Statement shape
// ============================================================================

func TestRender_SelectStar(t *testing.T) {
	r := NewSQLRenderer(ANSI)

	res, err := r.Render(&queryir.Query{Root: &queryir.JoinNode{Table: "orders", Alias: "orders"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders", res.SQL)
	assert.Equal(t, "SELECT *\nFROM orders", res.Formatted)
}

func TestRender_JoinTreePreOrder(t *testing.T) {
	root := &queryir.JoinNode{Table: "orders", Alias: "o"}
	items := join(root, "order_items", "order_items", "id", "order_id", ir.JoinInner)
	join(items, "products", "products", "product_id", "id", ir.JoinInner)
	join(root, "addresses", "ship", "address_id", "id", ir.JoinLeft)

	q := &queryir.Query{
		Root: root,
		Projections: []queryir.Projection{
			{Expr: queryir.Column{Alias: "o", Name: "id"}},
			{Expr: queryir.Column{Alias: "products", Name: "title"}, Alias: "product"},
		},
	}

	res, err := NewSQLRenderer(ANSI).Render(q)
	require.NoError(t, err)

	assert.Equal(t, "SELECT o.id, products.title AS product FROM orders AS o"+
		" INNER JOIN order_items ON o.id = order_items.order_id"+
		" INNER JOIN products ON order_items.product_id = products.id"+
		" LEFT JOIN addresses AS ship ON o.address_id = ship.id", res.SQL)

	assert.Equal(t, `SELECT o.id, products.title AS product
FROM orders AS o
INNER JOIN order_items ON o.id = order_items.order_id
INNER JOIN products ON order_items.product_id = products.id
LEFT JOIN addresses AS ship ON o.address_id = ship.id`, res.Formatted)
}

func TestRender_NestedCalls(t *testing.T) {
	q := &queryir.Query{
		Root: &queryir.JoinNode{Table: "orders", Alias: "o"},
		Projections: []queryir.Projection{{
			Expr: queryir.Call{Func: "SUM", Args: []queryir.Expr{
				queryir.Call{Func: "ROUND", Args: []queryir.Expr{
					queryir.Column{Alias: "o", Name: "amount"},
					queryir.Literal{Value: ir.IRInt(2)},
				}},
			}},
			Alias: "amount_sum_round",
		}},
	}

	res, err := NewSQLRenderer(ANSI).Render(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT SUM(ROUND(o.amount, 2)) AS amount_sum_round FROM orders AS o", res.SQL)
}

func TestRender_MissingRoot(t *testing.T) {
	_, err := NewSQLRenderer(ANSI).Render(&queryir.Query{})
	require.Error(t, err)

	_, err = NewSQLRenderer(ANSI).Render(nil)
	require.Error(t, err)
}

func TestRender_JoinWithoutPredicate(t *testing.T) {
	root := &queryir.JoinNode{Table: "orders", Alias: "o"}
	root.Children = append(root.Children, &queryir.JoinNode{Table: "customers", Alias: "customers", Type: ir.JoinInner})

	_, err := NewSQLRenderer(ANSI).Render(&queryir.Query{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers")
}

// ============================================================================
// Literals
// ============================================================================

func TestRender_Literals(t *testing.T) {
	tests := []struct {
		name     string
		value    ir.IRValue
		expected string
	}{
		{"string", ir.IRString("paid"), "'paid'"},
		{"quote doubled", ir.IRString("it's"), "'it''s'"},
		{"int", ir.IRInt(-7), "-7"},
		{"number verbatim", ir.IRNumber("0.10"), "0.10"},
		{"true", ir.IRBool(true), "TRUE"},
		{"false", ir.IRBool(false), "FALSE"},
		{"null", ir.IRNull{}, "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queryir.Query{
				Root:        &queryir.JoinNode{Table: "t", Alias: "t"},
				Projections: []queryir.Projection{{Expr: queryir.Literal{Value: tt.value}}},
			}
			res, err := NewSQLRenderer(ANSI).Render(q)
			require.NoError(t, err)
			assert.Equal(t, "SELECT "+tt.expected+" FROM t", res.SQL)
		})
	}
}

func TestRender_StringLiteralPerDialect(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		value    string
		expected string
	}{
		{"ansi keeps backslash", ANSI, `a\b`, `'a\b'`},
		{"mysql doubles backslash", MySQL, `a\b`, `'a\\b'`},
		{"mysql trailing backslash stays inside", MySQL, `\' OR 1=1 -- `, `'\\'' OR 1=1 -- '`},
		{"postgres quote doubled", Postgres, `\' OR 1=1 -- `, `'\'' OR 1=1 -- '`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queryir.Query{
				Root:        &queryir.JoinNode{Table: "t", Alias: "t"},
				Projections: []queryir.Projection{{Expr: queryir.Literal{Value: ir.IRString(tt.value)}, Alias: "v"}},
			}
			res, err := NewSQLRenderer(tt.dialect).Render(q)
			require.NoError(t, err)
			assert.Equal(t, "SELECT "+tt.expected+" AS v FROM t", res.SQL)
		})
	}
}

func TestRender_RejectsNonIdentifierFunction(t *testing.T) {
	q := &queryir.Query{
		Root: &queryir.JoinNode{Table: "t", Alias: "t"},
		Projections: []queryir.Projection{{Expr: queryir.Call{
			Func: "SUM(1)) FROM X; --",
			Args: []queryir.Expr{queryir.Column{Alias: "t", Name: "id"}},
		}}},
	}
	_, err := NewSQLRenderer(ANSI).Render(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a plain identifier")
}

func TestRender_LiteralRejectsComposite(t *testing.T) {
	q := &queryir.Query{
		Root:        &queryir.JoinNode{Table: "t", Alias: "t"},
		Projections: []queryir.Projection{{Expr: queryir.Literal{Value: ir.IRArray{ir.IRInt(1)}}}},
	}
	_, err := NewSQLRenderer(ANSI).Render(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array")
}

// ============================================================================
// Dialects
// ============================================================================

func TestRender_QuotesOnlyWhenNeeded(t *testing.T) {
	root := &queryir.JoinNode{Table: "order", Alias: "o"}
	join(root, "user", "user", "user id", "id", ir.JoinInner)
	q := &queryir.Query{
		Root: root,
		Projections: []queryir.Projection{
			{Expr: queryir.Column{Alias: "o", Name: "total"}, Alias: "select"},
		},
	}

	tests := []struct {
		dialect  Dialect
		expected string
	}{
		{ANSI, `SELECT o.total AS "select" FROM "order" AS o INNER JOIN "user" ON o."user id" = "user".id`},
		{MySQL, "SELECT o.total AS `select` FROM `order` AS o INNER JOIN `user` ON o.`user id` = `user`.id"},
		{MSSQL, `SELECT o.total AS [select] FROM [order] AS o INNER JOIN [user] ON o.[user id] = [user].id`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			res, err := NewSQLRenderer(tt.dialect).Render(q)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.SQL)
		})
	}
}

func TestQuoteIdent_EscapesQuoteEnd(t *testing.T) {
	assert.Equal(t, `"a""b"`, ANSI.QuoteIdent(`a"b`))
	assert.Equal(t, "[a]]b]", MSSQL.QuoteIdent("a]b"))
	assert.Equal(t, "plain_name1", SQLite.QuoteIdent("plain_name1"))
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("")
	require.NoError(t, err)
	assert.Equal(t, ANSI, d)

	d, err = DialectByName("MySQL")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d)

	_, err = DialectByName("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mssql")

	assert.Equal(t, []string{"ansi", "mssql", "mysql", "postgres", "sqlite"}, DialectNames())
}
