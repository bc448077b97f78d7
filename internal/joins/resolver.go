// Package joins resolves a normalized join list into a join tree.
//
// Each entry is joined to its parent (or the root) through the relationship
// the parent's table declares. Relationships routed through an intermediate
// table are expanded into two hops; the intermediate node is synthetic and
// stays invisible to select resolution.
package joins

import (
	"fmt"
	"log/slog"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/queryir"
	"github.com/roach88/specql/internal/schema"
)

// Resolver resolves join lists against one schema registry.
// A Resolver holds no per-query state and is safe for concurrent use.
type Resolver struct {
	registry *schema.Registry
	ids      IDGenerator
	logger   *slog.Logger
	strict   bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIDGenerator sets the generator for synthetic node ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Resolver) { r.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithStrict makes an unknown parent id an error instead of a root fallback.
func WithStrict(strict bool) Option {
	return func(r *Resolver) { r.strict = strict }
}

// NewResolver creates a Resolver over registry.
func NewResolver(registry *schema.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is the resolved join tree of one query.
type Resolution struct {
	Root    *queryir.JoinNode
	byID    map[string]*queryir.JoinNode
	visible []*queryir.JoinNode
}

// Node returns the node of the join entry with the given id.
// Synthetic nodes are not addressable.
func (res *Resolution) Node(id string) (*queryir.JoinNode, bool) {
	n, ok := res.byID[id]
	return n, ok
}

// Visible returns the caller-requested nodes in join list order.
func (res *Resolution) Visible() []*queryir.JoinNode {
	return append([]*queryir.JoinNode{}, res.visible...)
}

// FindTable returns the first caller-requested node for table.
func (res *Resolution) FindTable(table string) (*queryir.JoinNode, bool) {
	for _, n := range res.visible {
		if n.Table == table {
			return n, true
		}
	}
	return nil, false
}

// Resolve builds the join tree for joins. joins[0] is the root.
func (r *Resolver) Resolve(joins []ir.JoinSpec) (*Resolution, error) {
	if len(joins) == 0 {
		return nil, &ResolveError{Code: ErrUnknownRootTable, Message: "join list is empty"}
	}

	rootSpec := joins[0]
	rootDef, ok := r.registry.Table(rootSpec.Table)
	if !ok {
		return nil, &ResolveError{
			Code:    ErrUnknownRootTable,
			Target:  rootSpec.Table,
			Message: fmt.Sprintf("unknown table %q", rootSpec.Table),
		}
	}

	root := &queryir.JoinNode{
		ID:    rootSpec.ID,
		Table: rootDef.Name,
		Alias: firstNonEmpty(rootSpec.Alias, rootDef.Alias, rootDef.Name),
		Type:  ir.JoinInner,
	}
	res := &Resolution{
		Root:    root,
		byID:    make(map[string]*queryir.JoinNode),
		visible: []*queryir.JoinNode{root},
	}
	if root.ID != "" {
		res.byID[root.ID] = root
	}

	aliases := newAliasTable(root.Alias)
	for _, entry := range joins[1:] {
		source, err := r.source(res, entry)
		if err != nil {
			return nil, err
		}

		var node *queryir.JoinNode
		node, aliases, err = r.attach(source, entry, false, nil, aliases)
		if err != nil {
			return nil, err
		}

		res.visible = append(res.visible, node)
		if entry.ID != "" {
			res.byID[entry.ID] = node
		}
	}

	r.logger.Debug("joins resolved",
		"root", root.Table,
		"nodes", len(root.Nodes()),
		"requested", len(res.visible))
	return res, nil
}

// source returns the node an entry joins from: its parent, else the root.
func (r *Resolver) source(res *Resolution, entry ir.JoinSpec) (*queryir.JoinNode, error) {
	if entry.ParentID == "" {
		return res.Root, nil
	}
	if parent, ok := res.byID[entry.ParentID]; ok {
		return parent, nil
	}
	if r.strict {
		return nil, &ResolveError{
			Code:    ErrUnknownParent,
			Target:  entry.Table,
			Message: fmt.Sprintf("join to %q names unknown parent %q", entry.Table, entry.ParentID),
		}
	}
	r.logger.Warn("unknown parent id, joining from root",
		"parent", entry.ParentID,
		"table", entry.Table,
		"root", res.Root.Table)
	return res.Root, nil
}

// attach resolves entry against source and links the new node under it.
// hop marks an edge inside a via expansion; such edges may use the target's
// relationship back to the source. chain holds the via tables already
// expanded on the way to entry.
func (r *Resolver) attach(source *queryir.JoinNode, entry ir.JoinSpec, hop bool, chain []string, aliases aliasTable) (*queryir.JoinNode, aliasTable, error) {
	jd, err := r.relationship(source.Table, entry.Table, hop)
	if err != nil {
		return nil, aliases, err
	}

	if jd.Via != "" {
		for _, seen := range chain {
			if seen == jd.Via {
				return nil, aliases, &ResolveError{
					Code:    ErrViaCycle,
					Source:  source.Table,
					Target:  entry.Table,
					Message: fmt.Sprintf("via chain from %q to %q revisits %q", source.Table, entry.Table, jd.Via),
				}
			}
		}
		chain = append(append([]string{}, chain...), jd.Via)

		viaEntry := ir.JoinSpec{ID: r.ids.Generate(), Table: jd.Via}
		var viaNode *queryir.JoinNode
		viaNode, aliases, err = r.attach(source, viaEntry, true, chain, aliases)
		if err != nil {
			return nil, aliases, err
		}
		viaNode.Synthetic = true

		r.logger.Debug("expanded via join",
			"source", source.Table,
			"via", jd.Via,
			"target", entry.Table,
			"via_alias", viaNode.Alias)
		return r.attach(viaNode, entry, true, chain, aliases)
	}

	targetDef, _ := r.registry.Table(entry.Table)
	alias, aliases := aliases.assign(firstNonEmpty(entry.Alias, targetDef.Alias, targetDef.Name))

	node := &queryir.JoinNode{
		ID:    entry.ID,
		Table: entry.Table,
		Alias: alias,
		Type:  jd.Type,
		On: &queryir.Equals{
			Left:  queryir.ColumnRef{Alias: source.Alias, Column: jd.SourceKey},
			Right: queryir.ColumnRef{Alias: alias, Column: jd.TargetKey},
		},
	}
	source.Children = append(source.Children, node)
	return node, aliases, nil
}

// relationship returns the join declared from source to target. For via hops
// a relationship declared from target back to source is used with its keys
// swapped.
func (r *Resolver) relationship(source, target string, hop bool) (ir.JoinDef, error) {
	sourceDef, ok := r.registry.Table(source)
	if ok {
		if jd, ok := sourceDef.Join(target); ok {
			return jd, nil
		}
	}

	if hop {
		if targetDef, ok := r.registry.Table(target); ok {
			if back, ok := targetDef.Join(source); ok && back.Via == "" {
				return ir.JoinDef{
					Target:    target,
					SourceKey: back.TargetKey,
					TargetKey: back.SourceKey,
					Type:      back.Type,
				}, nil
			}
		}
	}

	return ir.JoinDef{}, &ResolveError{
		Code:    ErrMissingJoin,
		Source:  source,
		Target:  target,
		Message: fmt.Sprintf("table %q declares no join to %q", source, target),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
