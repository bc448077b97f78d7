package introspect

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/loader"
	"github.com/roach88/specql/internal/testutil"
)

const shopDDL = `
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE products (sku TEXT PRIMARY KEY, title TEXT);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER REFERENCES customers(id),
	amount REAL
);
CREATE TABLE order_items (
	order_id INTEGER REFERENCES orders,
	product_sku TEXT REFERENCES products(sku),
	qty INTEGER
);
CREATE TABLE employees (id INTEGER PRIMARY KEY, manager_id INTEGER REFERENCES employees(id));
CREATE TABLE pairs (x INTEGER, y INTEGER, PRIMARY KEY (x, y));
CREATE TABLE shipments (a INTEGER, b INTEGER, FOREIGN KEY (a, b) REFERENCES pairs(x, y));
`

func openTestDB(t *testing.T, ddl string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	}
	return db
}

func joinTargets(t *testing.T, defs ir.IRObject, table string) []string {
	t.Helper()
	def, ok := defs.Get(table)
	require.True(t, ok, "table %s", table)
	js, ok := def.(ir.IRObject).Get("joins")
	if !ok {
		return nil
	}
	var targets []string
	for _, j := range js.(ir.IRArray) {
		target, _ := j.(ir.IRObject).Get("table")
		targets = append(targets, string(target.(ir.IRString)))
	}
	return targets
}

// =============================================================================
// Extraction
// =============================================================================

func TestExtractTablesAndColumns(t *testing.T) {
	db := openTestDB(t, shopDDL)

	s, err := Extract(context.Background(), db, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	var names []string
	for _, tbl := range s.Tables {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"customers", "employees", "order_items", "orders", "pairs", "products", "shipments"}, names)

	orders := s.Tables[3]
	require.Len(t, orders.Columns, 3)
	assert.Equal(t, Column{Name: "id", Type: "INTEGER", PK: true}, orders.Columns[0])
	assert.Equal(t, "customer_id", orders.Columns[1].Name)
	assert.Equal(t, "id", orders.PrimaryKey())

	assert.True(t, s.Tables[0].Columns[1].NotNull)
	assert.Equal(t, "", s.Tables[2].PrimaryKey())
	assert.Equal(t, "x", s.Tables[4].PrimaryKey())
}

func TestExtractForeignKeys(t *testing.T) {
	db := openTestDB(t, shopDDL)

	s, err := Extract(context.Background(), db, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	// Composite shipments key is skipped; order_items keys follow column order
	assert.Equal(t, []ForeignKey{
		{FromTable: "employees", FromColumn: "manager_id", ToTable: "employees", ToColumn: "id"},
		{FromTable: "order_items", FromColumn: "order_id", ToTable: "orders", ToColumn: ""},
		{FromTable: "order_items", FromColumn: "product_sku", ToTable: "products", ToColumn: "sku"},
		{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
	}, s.ForeignKeys)
}

func TestExtractEmptyDatabase(t *testing.T) {
	db := openTestDB(t, "")

	defs, err := SQLite(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

// =============================================================================
// Definitions
// =============================================================================

func TestDefinitionsJoinsBothDirections(t *testing.T) {
	db := openTestDB(t, shopDDL)

	defs, err := SQLite(context.Background(), db, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, joinTargets(t, defs, "customers"))
	assert.Equal(t, []string{"customers", "order_items"}, joinTargets(t, defs, "orders"))
	assert.Equal(t, []string{"orders", "products"}, joinTargets(t, defs, "order_items"))
	assert.Equal(t, []string{"order_items"}, joinTargets(t, defs, "products"))
	assert.Equal(t, []string{"employees"}, joinTargets(t, defs, "employees"))
	assert.Nil(t, joinTargets(t, defs, "shipments"))

	orders, _ := defs.Get("orders")
	assert.Equal(t, ir.IRObject{
		{Key: "table", Value: ir.IRString("order_items")},
		{Key: "source_key", Value: ir.IRString("id")},
		{Key: "target_key", Value: ir.IRString("order_id")},
	}, mustJoins(t, orders)[1])

	// Implicit reference resolves to the parent's primary key
	items, _ := defs.Get("order_items")
	assert.Equal(t, ir.IRObject{
		{Key: "table", Value: ir.IRString("orders")},
		{Key: "source_key", Value: ir.IRString("order_id")},
		{Key: "target_key", Value: ir.IRString("id")},
	}, mustJoins(t, items)[0])

	_, hasPK := items.(ir.IRObject).Get("primary_key")
	assert.False(t, hasPK)
}

func TestDefinitionsMutualKeysKeepFirst(t *testing.T) {
	s := Schema{
		Tables: []Table{
			{Name: "a", Columns: []Column{{Name: "id", PK: true}, {Name: "b_id"}}},
			{Name: "b", Columns: []Column{{Name: "id", PK: true}, {Name: "a_id"}}},
		},
		ForeignKeys: []ForeignKey{
			{FromTable: "a", FromColumn: "b_id", ToTable: "b", ToColumn: "id"},
			{FromTable: "b", FromColumn: "a_id", ToTable: "a", ToColumn: "id"},
		},
	}

	defs := s.Definitions()
	require.Len(t, mustJoins(t, mustGet(t, defs, "a")), 1)
	require.Len(t, mustJoins(t, mustGet(t, defs, "b")), 1)

	// Forward keys win over reverse joins for the same pair
	assert.Equal(t, ir.IRString("b_id"), mustField(t, mustJoins(t, mustGet(t, defs, "a"))[0], "source_key"))
	assert.Equal(t, ir.IRString("a_id"), mustField(t, mustJoins(t, mustGet(t, defs, "b"))[0], "source_key"))
}

func TestDefinitionsSkipUnknownParent(t *testing.T) {
	s := Schema{
		Tables:      []Table{{Name: "a", Columns: []Column{{Name: "x_id"}}}},
		ForeignKeys: []ForeignKey{{FromTable: "a", FromColumn: "x_id", ToTable: "x", ToColumn: "id"}},
	}

	_, ok := s.Definitions()[0].Value.(ir.IRObject).Get("joins")
	assert.False(t, ok)
}

func TestDefinitionsCompile(t *testing.T) {
	db := openTestDB(t, shopDDL)
	defs, err := SQLite(context.Background(), db)
	require.NoError(t, err)

	c := compiler.New(
		compiler.WithIDGenerator(testutil.NewSequenceGenerator("via")),
		compiler.WithLogger(testutil.NewTestLogger(t)),
	)
	require.NoError(t, c.Define(defs))

	spec, err := ir.ParseJSON([]byte(`{"from": "customers", "join": "orders", "select": [{"name": "amount", "table": "orders"}]}`))
	require.NoError(t, err)
	res, err := c.Query(spec)
	require.NoError(t, err)
	assert.Equal(t, "SELECT orders.amount FROM customers INNER JOIN orders ON customers.id = orders.customer_id", res.SQL)
}

// =============================================================================
// YAML output
// =============================================================================

func TestEncodeYAML(t *testing.T) {
	db := openTestDB(t, `
		CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id));
	`)
	defs, err := SQLite(context.Background(), db)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, defs))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "customers:\n  primary_key: id\n  columns:\n"), out)
	assert.Contains(t, out, "- table: orders\n")
	assert.Contains(t, out, "\norders:\n  primary_key: id\n")

	// Output loads back to the same definitions
	back, err := loader.Parse(buf.Bytes(), loader.FormatYAML, "defs.yaml")
	require.NoError(t, err)
	assert.Equal(t, ir.IRValue(defs), back)
}

func mustGet(t *testing.T, obj ir.IRObject, key string) ir.IRValue {
	t.Helper()
	v, ok := obj.Get(key)
	require.True(t, ok, "missing %s", key)
	return v
}

func mustJoins(t *testing.T, def ir.IRValue) ir.IRArray {
	t.Helper()
	return mustGet(t, def.(ir.IRObject), "joins").(ir.IRArray)
}

func mustField(t *testing.T, v ir.IRValue, key string) ir.IRValue {
	t.Helper()
	return mustGet(t, v.(ir.IRObject), key)
}
