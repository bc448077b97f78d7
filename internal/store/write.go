package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/specql/internal/ir"
)

// SchemaRecord is one saved set of table definitions.
type SchemaRecord struct {
	Hash         string
	Definitions  ir.IRObject // Raw form, keyed by table name in declaration order
	PublicSchema []ir.PublicTable
	Seq          int64
}

// QueryRecord is one compiled query.
type QueryRecord struct {
	ID              string
	SchemaHash      string
	Dialect         string
	Spec            ir.IRValue // Raw spec as submitted
	SQL             string
	Formatted       string
	Seq             int64
	CompilerVersion string
	IRVersion       string
}

// SaveSchema records the definitions identified by hash.
// Uses ON CONFLICT(hash) DO NOTHING for idempotency; inserted reports whether
// a new row was written. Seq is assigned on first insert.
func (s *Store) SaveSchema(ctx context.Context, hash string, tables []ir.TableDef, public []ir.PublicTable) (inserted bool, err error) {
	if hash == "" {
		return false, fmt.Errorf("save schema: empty hash")
	}

	defsJSON, err := marshalDefinitions(tables)
	if err != nil {
		return false, fmt.Errorf("save schema: %w", err)
	}
	publicJSON, err := marshalPublicSchema(public)
	if err != nil {
		return false, fmt.Errorf("save schema: %w", err)
	}

	// WHERE true keeps SQLite from parsing ON CONFLICT as a join constraint
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schemas (hash, definitions, public_schema, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM schemas WHERE true
		ON CONFLICT(hash) DO NOTHING
	`, hash, defsJSON, publicJSON)
	if err != nil {
		return false, fmt.Errorf("save schema: %w", err)
	}
	return rowsInserted(res)
}

// SaveQuery records a compiled query under its content-addressed id.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; inserted reports whether
// a new row was written. rec.Seq is ignored and assigned on first insert.
//
// Note: rec.SchemaHash must reference a saved schema (foreign key constraint).
func (s *Store) SaveQuery(ctx context.Context, rec QueryRecord) (inserted bool, err error) {
	if rec.ID == "" {
		return false, fmt.Errorf("save query: empty id")
	}

	specJSON, err := marshalSpec(rec.Spec)
	if err != nil {
		return false, fmt.Errorf("save query: %w", err)
	}

	compilerVersion := rec.CompilerVersion
	if compilerVersion == "" {
		compilerVersion = ir.CompilerVersion
	}
	irVersion := rec.IRVersion
	if irVersion == "" {
		irVersion = ir.IRVersion
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queries
		(id, schema_hash, dialect, spec, sql, formatted, seq, compiler_version, ir_version)
		SELECT ?, ?, ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ? FROM queries WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.SchemaHash,
		rec.Dialect,
		specJSON,
		rec.SQL,
		rec.Formatted,
		compilerVersion,
		irVersion,
	)
	if err != nil {
		return false, fmt.Errorf("save query: %w", err)
	}
	return rowsInserted(res)
}

func rowsInserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
