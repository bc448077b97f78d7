// Package compiler assembles SQL from table definitions and query specifications.
//
// A Compiler is configured once with Define and then answers any number of
// Query calls. Each call runs the pipeline
//
//	queryspec.Normalize -> joins.Resolver -> compose.Composer -> queryir.Validate -> Renderer
//
// against a snapshot of the current definitions. Re-defining swaps the
// snapshot; calls already in flight keep the one they started with.
package compiler

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/specql/internal/compose"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/joins"
	"github.com/roach88/specql/internal/queryir"
	"github.com/roach88/specql/internal/querysql"
	"github.com/roach88/specql/internal/queryspec"
	"github.com/roach88/specql/internal/schema"
)

// Compiler turns query specifications into SQL.
//
// Thread-safety: all methods are safe for concurrent use.
type Compiler struct {
	mu       sync.RWMutex
	registry *schema.Registry

	functions *compose.FunctionRegistry
	renderer  querysql.Renderer
	dialect   querysql.Dialect
	ids       joins.IDGenerator
	logger    *slog.Logger
	strict    bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRenderer replaces the SQL renderer.
func WithRenderer(r querysql.Renderer) Option {
	return func(c *Compiler) { c.renderer = r }
}

// WithDialect selects the dialect of the default renderer.
func WithDialect(d querysql.Dialect) Option {
	return func(c *Compiler) { c.dialect = d }
}

// WithIDGenerator sets the generator for synthetic via-node ids.
func WithIDGenerator(g joins.IDGenerator) Option {
	return func(c *Compiler) { c.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithStrict turns unknown parent and join ids into errors.
func WithStrict(strict bool) Option {
	return func(c *Compiler) { c.strict = strict }
}

// New creates a Compiler with no definitions.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		functions: compose.NewFunctionRegistry(),
		dialect:   querysql.ANSI,
		ids:       joins.UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderer == nil {
		c.renderer = querysql.NewSQLRenderer(c.dialect)
	}
	return c
}

// Result is one compiled query.
type Result struct {
	SQL        string
	Formatted  string
	Plan       *queryir.Query
	QueryID    string // Content id of (spec, schema, dialect)
	SchemaHash string
}

// Define normalizes defs and makes them the current definitions.
// On error the previous definitions stay in place.
func (c *Compiler) Define(defs ir.IRValue) error {
	registry, err := schema.Build(defs)
	if err != nil {
		return fmt.Errorf("define: %w", err)
	}

	c.mu.Lock()
	c.registry = registry
	c.mu.Unlock()

	c.logger.Info("definitions loaded",
		"tables", registry.Len(),
		"schema_hash", registry.Hash())
	return nil
}

// DefineMap is Define for Go values. Map keys are sorted, so column and
// table order follows the key order rather than the source literal.
func (c *Compiler) DefineMap(defs map[string]any) error {
	v, err := ir.FromAny(defs)
	if err != nil {
		return fmt.Errorf("define: %w", err)
	}
	return c.Define(v)
}

func (c *Compiler) snapshot() (*schema.Registry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.registry == nil {
		return nil, errNotDefined
	}
	return c.registry, nil
}

// Plan resolves spec into a query tree without rendering it.
func (c *Compiler) Plan(spec ir.IRValue) (*queryir.Query, error) {
	registry, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	q, _, err := c.plan(registry, spec)
	return q, err
}

func (c *Compiler) plan(registry *schema.Registry, spec ir.IRValue) (*queryir.Query, *ir.QuerySpec, error) {
	qs, err := queryspec.Normalize(spec)
	if err != nil {
		return nil, nil, err
	}

	resolver := joins.NewResolver(registry,
		joins.WithIDGenerator(c.ids),
		joins.WithLogger(c.logger),
		joins.WithStrict(c.strict))
	res, err := resolver.Resolve(qs.Joins)
	if err != nil {
		return nil, nil, err
	}

	composer := compose.NewComposer(registry, c.functions,
		compose.WithLogger(c.logger),
		compose.WithStrict(c.strict))
	projections, err := composer.ComposeAll(qs.Selects, res)
	if err != nil {
		return nil, nil, err
	}

	q := &queryir.Query{Root: res.Root, Projections: projections}
	if v := queryir.Validate(q); !v.IsValid {
		return nil, nil, fmt.Errorf("invalid query plan: %s", strings.Join(v.Problems, "; "))
	}
	return q, qs, nil
}

// Query compiles spec to SQL.
func (c *Compiler) Query(spec ir.IRValue) (*Result, error) {
	registry, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	q, qs, err := c.plan(registry, spec)
	if err != nil {
		return nil, err
	}

	rendered, err := c.renderer.Render(q)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	id, err := ir.QueryID(qs, registry.Hash(), c.dialect.Name)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("query compiled",
		"query_id", id,
		"root", q.Root.Table,
		"projections", len(q.Projections))
	return &Result{
		SQL:        rendered.SQL,
		Formatted:  rendered.Formatted,
		Plan:       q,
		QueryID:    id,
		SchemaHash: registry.Hash(),
	}, nil
}

// PublicSchema returns the visible part of the current definitions.
func (c *Compiler) PublicSchema() ([]ir.PublicTable, error) {
	registry, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return registry.PublicSchema(), nil
}

// Tables returns the canonical current definitions in declaration order.
func (c *Compiler) Tables() ([]ir.TableDef, error) {
	registry, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return registry.Tables(), nil
}

// SchemaHash returns the content hash of the current definitions.
func (c *Compiler) SchemaHash() (string, error) {
	registry, err := c.snapshot()
	if err != nil {
		return "", err
	}
	return registry.Hash(), nil
}

// RegisterFunction adds a function available to every later query.
// It fails with E323 when id or name is not a plain identifier.
func (c *Compiler) RegisterFunction(id, name string, prefill ...ir.IRValue) (compose.Function, error) {
	return c.functions.Register(id, name, prefill...)
}

// Functions returns the ids of every registered function.
func (c *Compiler) Functions() []string {
	return c.functions.IDs()
}

// Dialect returns the dialect of the default renderer.
func (c *Compiler) Dialect() querysql.Dialect {
	return c.dialect
}
