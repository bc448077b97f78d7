// Package introspect derives table definitions from a live SQLite database.
//
// Tables become definitions, primary keys become primary_key, and every
// single-column foreign key on a child table becomes a pair of joins:
// child -> parent (source_key = fk column, target_key = referenced column)
// and parent -> child (the reverse). The result is raw definition input,
// ready for schema normalization or YAML output.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/specql/internal/ir"
)

// Column is one column of an introspected table.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// ForeignKey is one single-column foreign key.
type ForeignKey struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string // Empty when the key references the parent's primary key implicitly
}

// Table is one introspected table.
type Table struct {
	Name    string
	Columns []Column
}

// PrimaryKey returns the first primary key column, or "" if there is none.
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PK {
			return c.Name
		}
	}
	return ""
}

// Schema is the full database schema.
type Schema struct {
	Tables      []Table
	ForeignKeys []ForeignKey
}

// Option configures extraction.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report skipped foreign keys.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// SQLite reads db and returns raw table definitions.
func SQLite(ctx context.Context, db *sql.DB, opts ...Option) (ir.IRObject, error) {
	s, err := Extract(ctx, db, opts...)
	if err != nil {
		return nil, err
	}
	return s.Definitions(), nil
}

// Extract reads tables, columns and foreign keys from db.
// Tables are ordered by name, columns by position.
func Extract(ctx context.Context, db *sql.DB, opts ...Option) (Schema, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := Schema{Tables: []Table{}, ForeignKeys: []ForeignKey{}}

	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return s, fmt.Errorf("query tables: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return s, fmt.Errorf("scan table row: %w", err)
		}
		s.Tables = append(s.Tables, Table{Name: name, Columns: []Column{}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return s, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	for i := range s.Tables {
		t := &s.Tables[i]
		cols, err := columns(ctx, db, t.Name)
		if err != nil {
			return s, err
		}
		t.Columns = cols

		fks, err := foreignKeys(ctx, db, t, o.logger)
		if err != nil {
			return s, err
		}
		s.ForeignKeys = append(s.ForeignKeys, fks...)
	}

	o.logger.Debug("introspected sqlite schema",
		"tables", len(s.Tables),
		"foreign_keys", len(s.ForeignKeys))
	return s, nil
}

func columns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, type, "notnull", pk
		FROM pragma_table_info(?)
		ORDER BY cid
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var c Column
		var notnull, pk int
		if err := rows.Scan(&c.Name, &c.Type, &notnull, &pk); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		c.NotNull = notnull != 0
		c.PK = pk != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %s: %w", table, err)
	}
	return cols, nil
}

// foreignKeys returns the single-column foreign keys of t ordered by column
// position. Composite keys cannot be expressed as one join and are skipped.
func foreignKeys(ctx context.Context, db *sql.DB, t *Table, logger *slog.Logger) ([]ForeignKey, error) {
	table := t.Name
	rows, err := db.QueryContext(ctx, `
		SELECT id, seq, "table", "from", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	type fkRow struct {
		id, seq int
		fk      ForeignKey
	}
	var all []fkRow
	width := map[int]int{}
	for rows.Next() {
		var r fkRow
		var to sql.NullString
		if err := rows.Scan(&r.id, &r.seq, &r.fk.ToTable, &r.fk.FromColumn, &to); err != nil {
			return nil, fmt.Errorf("scan foreign key for %s: %w", table, err)
		}
		r.fk.FromTable = table
		r.fk.ToColumn = to.String
		width[r.id]++
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys for %s: %w", table, err)
	}

	fks := []ForeignKey{}
	for _, r := range all {
		if width[r.id] > 1 {
			if r.seq == 0 {
				logger.Warn("skipping composite foreign key",
					"table", table,
					"references", r.fk.ToTable,
					"columns", width[r.id])
			}
			continue
		}
		fks = append(fks, r.fk)
	}

	// SQLite numbers foreign keys in reverse declaration order
	position := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		position[c.Name] = i
	}
	sort.SliceStable(fks, func(i, j int) bool {
		return position[fks[i].FromColumn] < position[fks[j].FromColumn]
	})
	return fks, nil
}

// Definitions converts the schema into raw definition form.
//
// Tables keep Extract's order. Each table lists its own foreign keys first
// (child -> parent), then the reverse joins from its children. Only the
// first relationship between an ordered pair of tables is kept, and a
// self-referencing key produces a single join.
func (s Schema) Definitions() ir.IRObject {
	pks := make(map[string]string, len(s.Tables))
	for _, t := range s.Tables {
		pks[t.Name] = t.PrimaryKey()
	}

	joins := make(map[string]ir.IRArray, len(s.Tables))
	seen := map[[2]string]bool{}
	add := func(from, to, sourceKey, targetKey string) {
		pair := [2]string{from, to}
		if seen[pair] {
			return
		}
		seen[pair] = true
		joins[from] = append(joins[from], ir.IRObject{
			{Key: "table", Value: ir.IRString(to)},
			{Key: "source_key", Value: ir.IRString(sourceKey)},
			{Key: "target_key", Value: ir.IRString(targetKey)},
		})
	}

	for _, fk := range s.ForeignKeys {
		if _, ok := pks[fk.ToTable]; !ok {
			continue // References a table outside this database
		}
		ref := fk.ToColumn
		if ref == "" {
			ref = pks[fk.ToTable]
		}
		if ref == "" {
			continue
		}
		add(fk.FromTable, fk.ToTable, fk.FromColumn, ref)
	}
	for _, fk := range s.ForeignKeys {
		if _, ok := pks[fk.ToTable]; !ok || fk.FromTable == fk.ToTable {
			continue
		}
		ref := fk.ToColumn
		if ref == "" {
			ref = pks[fk.ToTable]
		}
		if ref == "" {
			continue
		}
		add(fk.ToTable, fk.FromTable, ref, fk.FromColumn)
	}

	defs := make(ir.IRObject, 0, len(s.Tables))
	for _, t := range s.Tables {
		def := ir.IRObject{}
		if pk := pks[t.Name]; pk != "" {
			def.Set("primary_key", ir.IRString(pk))
		}
		cols := make(ir.IRArray, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = ir.IRString(c.Name)
		}
		def.Set("columns", cols)
		if js := joins[t.Name]; len(js) > 0 {
			def.Set("joins", js)
		}
		defs = append(defs, ir.IRMember{Key: t.Name, Value: def})
	}
	return defs
}
