package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/specql/internal/ir"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTables returns a two-table schema: orders joins customers.
func createTestTables() []ir.TableDef {
	return []ir.TableDef{
		{
			Name:       "orders",
			Alias:      "o",
			PrimaryKey: "id",
			Columns: []ir.ColumnDef{
				{Name: "id"},
				{Name: "customer_id"},
				{Name: "amount"},
			},
			Joins: []ir.JoinDef{
				{Target: "customers", SourceKey: "customer_id", TargetKey: "id", Type: ir.JoinInner},
			},
		},
		{
			Name:       "customers",
			PrimaryKey: "id",
			Columns: []ir.ColumnDef{
				{Name: "id"},
				{Name: "name"},
				{Name: "email", Hidden: true},
			},
			Joins: []ir.JoinDef{},
		},
	}
}

// createTestQuery creates a query record with minimal required fields.
func createTestQuery(id, schemaHash string) QueryRecord {
	return QueryRecord{
		ID:         id,
		SchemaHash: schemaHash,
		Dialect:    "ansi",
		Spec: ir.IRObject{
			{Key: "joins", Value: ir.IRArray{ir.IRString("orders")}},
			{Key: "select", Value: ir.IRArray{ir.IRString("amount")}},
		},
		SQL:       "SELECT o.amount AS amount FROM orders AS o",
		Formatted: "SELECT o.amount AS amount\nFROM orders AS o",
	}
}

// mustSaveSchema saves the test tables under hash.
func mustSaveSchema(t *testing.T, s *Store, hash string) {
	t.Helper()
	if _, err := s.SaveSchema(context.Background(), hash, createTestTables(), nil); err != nil {
		t.Fatalf("SaveSchema(%q) failed: %v", hash, err)
	}
}
