// Package querysql renders resolved queries as SQL text.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/queryir"
)

// Result is a rendered statement.
type Result struct {
	SQL       string // Single-line statement
	Formatted string // Same statement, one clause per line
}

// Renderer turns a resolved query into SQL.
type Renderer interface {
	Render(q *queryir.Query) (Result, error)
}

// SQLRenderer renders SELECT statements for one dialect.
//
// Output shape:
//
//	SELECT <projections | *> FROM <root> [AS alias]
//	  (INNER | LEFT) JOIN <table> [AS alias] ON a.key = b.key ...
//
// Joins are emitted depth-first in pre-order. An alias equal to the table
// name is omitted. Renderers never consult the schema.
type SQLRenderer struct {
	Dialect Dialect
}

// NewSQLRenderer creates a renderer for d.
func NewSQLRenderer(d Dialect) *SQLRenderer {
	return &SQLRenderer{Dialect: d}
}

// clause is one keyword-led fragment of the statement.
type clause struct {
	keyword string
	body    string
}

// Render renders q. Only structurally valid queries render.
func (r *SQLRenderer) Render(q *queryir.Query) (Result, error) {
	if q == nil || q.Root == nil {
		return Result{}, fmt.Errorf("cannot render query without a root table")
	}

	selectList, err := r.renderProjections(q.Projections)
	if err != nil {
		return Result{}, err
	}

	clauses := []clause{
		{keyword: "SELECT", body: selectList},
		{keyword: "FROM", body: r.tableRef(q.Root)},
	}

	var joinErr error
	q.Root.Walk(func(n *queryir.JoinNode) bool {
		if n == q.Root {
			return true
		}
		if n.On == nil {
			joinErr = fmt.Errorf("join to %q has no predicate", n.Alias)
			return false
		}
		keyword, err := joinKeyword(n.Type)
		if err != nil {
			joinErr = err
			return false
		}
		clauses = append(clauses, clause{
			keyword: keyword,
			body: fmt.Sprintf("%s ON %s = %s",
				r.tableRef(n), r.columnRef(n.On.Left.Alias, n.On.Left.Column), r.columnRef(n.On.Right.Alias, n.On.Right.Column)),
		})
		return true
	})
	if joinErr != nil {
		return Result{}, joinErr
	}

	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.keyword + " " + c.body
	}
	return Result{
		SQL:       strings.Join(parts, " "),
		Formatted: strings.Join(parts, "\n"),
	}, nil
}

func joinKeyword(t ir.JoinType) (string, error) {
	switch t {
	case ir.JoinInner, "":
		return "INNER JOIN", nil
	case ir.JoinLeft:
		return "LEFT JOIN", nil
	default:
		return "", fmt.Errorf("unsupported join type %q", t)
	}
}

func (r *SQLRenderer) tableRef(n *queryir.JoinNode) string {
	if n.Alias == "" || n.Alias == n.Table {
		return r.Dialect.QuoteIdent(n.Table)
	}
	return r.Dialect.QuoteIdent(n.Table) + " AS " + r.Dialect.QuoteIdent(n.Alias)
}

func (r *SQLRenderer) columnRef(alias, column string) string {
	return r.Dialect.QuoteIdent(alias) + "." + r.Dialect.QuoteIdent(column)
}

func (r *SQLRenderer) renderProjections(projections []queryir.Projection) (string, error) {
	if len(projections) == 0 {
		return "*", nil
	}

	parts := make([]string, len(projections))
	for i, p := range projections {
		expr, err := r.renderExpr(p.Expr)
		if err != nil {
			return "", fmt.Errorf("projection %d: %w", i, err)
		}
		if p.Alias != "" {
			expr += " AS " + r.Dialect.QuoteIdent(p.Alias)
		}
		parts[i] = expr
	}
	return strings.Join(parts, ", "), nil
}

func (r *SQLRenderer) renderExpr(e queryir.Expr) (string, error) {
	switch expr := e.(type) {
	case queryir.Column:
		return r.columnRef(expr.Alias, expr.Name), nil
	case queryir.Literal:
		return r.renderLiteral(expr.Value)
	case queryir.Call:
		if !simpleIdent.MatchString(expr.Func) {
			return "", fmt.Errorf("function name %q is not a plain identifier", expr.Func)
		}
		args := make([]string, len(expr.Args))
		for i, arg := range expr.Args {
			s, err := r.renderExpr(arg)
			if err != nil {
				return "", fmt.Errorf("%s argument %d: %w", expr.Func, i, err)
			}
			args[i] = s
		}
		return expr.Func + "(" + strings.Join(args, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// renderLiteral writes a constant. Strings are quoted by the dialect.
func (r *SQLRenderer) renderLiteral(v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case ir.IRString:
		return r.Dialect.QuoteString(string(val)), nil
	case ir.IRInt, ir.IRNumber:
		s, _ := ir.Text(val)
		return s, nil
	case ir.IRBool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case nil, ir.IRNull:
		return "NULL", nil
	default:
		return "", fmt.Errorf("%s cannot be rendered as a literal", ir.TypeName(v))
	}
}
