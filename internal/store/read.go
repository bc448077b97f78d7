package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSchema returns the saved schema with the given hash.
// Returns an error wrapping sql.ErrNoRows if it was never saved.
func (s *Store) GetSchema(ctx context.Context, hash string) (SchemaRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, definitions, public_schema, seq
		FROM schemas
		WHERE hash = ?
	`, hash)

	rec, err := scanSchema(row)
	if err != nil {
		return SchemaRecord{}, fmt.Errorf("get schema %s: %w", hash, err)
	}
	return rec, nil
}

// ListSchemas returns every saved schema.
// Results are ordered deterministically: ORDER BY seq ASC, hash COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if nothing was saved.
func (s *Store) ListSchemas(ctx context.Context) ([]SchemaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, definitions, public_schema, seq
		FROM schemas
		ORDER BY seq ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer rows.Close()

	schemas := []SchemaRecord{}
	for rows.Next() {
		rec, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return schemas, nil
}

// GetQuery returns the saved query with the given id.
// Returns an error wrapping sql.ErrNoRows if it was never saved.
func (s *Store) GetQuery(ctx context.Context, id string) (QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, schema_hash, dialect, spec, sql, formatted, seq, compiler_version, ir_version
		FROM queries
		WHERE id = ?
	`, id)

	rec, err := scanQuery(row)
	if err != nil {
		return QueryRecord{}, fmt.Errorf("get query %s: %w", id, err)
	}
	return rec, nil
}

// ListQueries returns the saved queries compiled against schemaHash,
// or every saved query when schemaHash is empty.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no queries match.
func (s *Store) ListQueries(ctx context.Context, schemaHash string) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_hash, dialect, spec, sql, formatted, seq, compiler_version, ir_version
		FROM queries
		WHERE ? = '' OR schema_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, schemaHash, schemaHash)
	if err != nil {
		return nil, fmt.Errorf("query queries: %w", err)
	}
	defer rows.Close()

	queries := []QueryRecord{}
	for rows.Next() {
		rec, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return queries, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSchema(row scanner) (SchemaRecord, error) {
	var rec SchemaRecord
	var defsJSON, publicJSON string
	if err := row.Scan(&rec.Hash, &defsJSON, &publicJSON, &rec.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan schema: %w", err)
	}

	defs, err := unmarshalDefinitions(defsJSON)
	if err != nil {
		return rec, err
	}
	rec.Definitions = defs

	public, err := unmarshalPublicSchema(publicJSON)
	if err != nil {
		return rec, err
	}
	rec.PublicSchema = public
	return rec, nil
}

func scanQuery(row scanner) (QueryRecord, error) {
	var rec QueryRecord
	var specJSON string
	err := row.Scan(
		&rec.ID,
		&rec.SchemaHash,
		&rec.Dialect,
		&specJSON,
		&rec.SQL,
		&rec.Formatted,
		&rec.Seq,
		&rec.CompilerVersion,
		&rec.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan query: %w", err)
	}

	spec, err := unmarshalSpec(specJSON)
	if err != nil {
		return rec, err
	}
	rec.Spec = spec
	return rec, nil
}
