// Package compose turns select entries into projection expressions.
package compose

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/joins"
	"github.com/roach88/specql/internal/queryir"
	"github.com/roach88/specql/internal/schema"
)

// Composer resolves select entries against a resolved join tree.
type Composer struct {
	registry  *schema.Registry
	functions *FunctionRegistry
	logger    *slog.Logger
	strict    bool
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// WithStrict makes an unknown join id an error instead of a root fallback.
func WithStrict(strict bool) Option {
	return func(c *Composer) { c.strict = strict }
}

// NewComposer creates a Composer. functions is read through a per-call
// overlay and never written.
func NewComposer(registry *schema.Registry, functions *FunctionRegistry, opts ...Option) *Composer {
	c := &Composer{
		registry:  registry,
		functions: functions,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComposeAll composes every select entry of one query in order.
func (c *Composer) ComposeAll(selects []ir.SelectSpec, res *joins.Resolution) ([]queryir.Projection, error) {
	scope := c.functions.Scope()
	out := make([]queryir.Projection, 0, len(selects))
	for _, sel := range selects {
		p, err := c.compose(sel, res, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Compose composes a single select entry.
func (c *Composer) Compose(sel ir.SelectSpec, res *joins.Resolution) (queryir.Projection, error) {
	return c.compose(sel, res, c.functions.Scope())
}

func (c *Composer) compose(sel ir.SelectSpec, res *joins.Resolution, scope *FunctionRegistry) (queryir.Projection, error) {
	node, err := c.owner(sel, res)
	if err != nil {
		return queryir.Projection{}, err
	}

	var (
		expr  queryir.Expr
		alias string
		base  = sel.Name
	)

	table, _ := c.registry.Table(node.Table)
	if col, ok := table.Column(sel.Name); ok && sel.Name != "" {
		expr = queryir.Column{Alias: node.Alias, Name: col.Name}
		alias = col.Alias
	} else if sel.Value != nil {
		expr = queryir.Literal{Value: sel.Value}
		if base == "" {
			base = "value"
		}
	} else {
		return queryir.Projection{}, &ComposeError{
			Code:    ErrUnknownColumn,
			Column:  sel.Name,
			Table:   node.Table,
			Message: fmt.Sprintf("column %q not found in table %q", sel.Name, node.Table),
		}
	}

	// Declared outer-to-inner: the last function wraps the base first
	for i := len(sel.Functions) - 1; i >= 0; i-- {
		call := sel.Functions[i]
		fn, ok := scope.Lookup(call.Name)
		if !ok {
			var err error
			if fn, err = scope.Register(call.Name, call.Name); err != nil {
				return queryir.Projection{}, err
			}
			c.logger.Debug("registered function for query", "function", fn.ID)
		}
		expr = fn.Apply(expr, call.Args...)
	}

	for _, call := range sel.Functions {
		if alias == "" {
			alias = base
		}
		alias += "_" + strings.ToLower(call.Name)
	}

	if sel.As != "" {
		alias = sel.As
	}
	return queryir.Projection{Expr: expr, Alias: alias}, nil
}

// owner finds the join node a select entry belongs to: by join id, else by
// table among caller-visible nodes, else the root.
func (c *Composer) owner(sel ir.SelectSpec, res *joins.Resolution) (*queryir.JoinNode, error) {
	if sel.JoinID != "" {
		if n, ok := res.Node(sel.JoinID); ok {
			return n, nil
		}
		if c.strict {
			return nil, &ComposeError{
				Code:    ErrUnknownJoinID,
				Column:  sel.Name,
				Message: fmt.Sprintf("select %q names unknown join %q", sel.Name, sel.JoinID),
			}
		}
		c.logger.Warn("unknown join id, resolving select from root",
			"join", sel.JoinID,
			"column", sel.Name)
	}
	if sel.Table != "" {
		if n, ok := res.FindTable(sel.Table); ok {
			return n, nil
		}
	}
	return res.Root, nil
}
