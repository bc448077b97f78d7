package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specql/internal/store"
)

// saveQueries compiles and saves each query against the shop schema.
func saveQueries(t *testing.T, catalog string, queries ...string) {
	t.Helper()
	for _, q := range queries {
		_, _, err := execute(t, strings.NewReader(q), "compile", "-", "--schema", shopSchema, "--store", catalog, "--save")
		require.NoError(t, err, q)
	}
}

func TestHistoryListsSavedQueries(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog,
		`{"from": "orders", "select": ["id"]}`,
		`{"from": "customers"}`,
	)

	stdout, _, err := execute(t, nil, "history", "--schema", shopSchema, "--store", catalog)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "SELECT o.id FROM orders AS o"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "SELECT * FROM customers"), lines[1])
	assert.Contains(t, lines[0], "ansi")
}

func TestHistoryVerify(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog, `{"from": "orders", "select": ["id"]}`)

	stdout, _, err := execute(t, nil, "history", "--schema", shopSchema, "--store", catalog, "--verify")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ All 1 saved query(ies) reproduce")
}

func TestHistoryVerifyReportsDrift(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog, `{"from": "orders", "select": ["id"]}`)

	st, err := store.Open(catalog)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(), "UPDATE queries SET sql = 'SELECT 1'")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, nil, "history", "--schema", shopSchema, "--store", catalog, "--verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ SQL changed: SELECT o.id FROM orders AS o")
	assert.Contains(t, stdout, "1 saved query(ies) drifted")
}

func TestHistoryFiltersBySchema(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog, `{"from": "orders"}`)

	stdout, _, err := execute(t, nil, "history", "--schema", "testdata/invalid.yaml", "--store", catalog)
	require.Error(t, err, "definitions that fail to compile cannot select a schema")
	assert.Contains(t, stdout, "Error [E201]")

	stdout, _, err = execute(t, nil, "history", "--all", "--store", catalog)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SELECT * FROM orders AS o")
}

func TestHistoryJSON(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog, `{"from": "orders", "select": ["id"]}`)

	stdout, _, err := execute(t, nil, "history", "--schema", shopSchema, "--store", catalog, "--format", "json", "--verify")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Queries, 1)

	q := resp.Data.Queries[0]
	assert.Equal(t, int64(1), q.Seq)
	assert.Equal(t, resp.Data.SchemaHash, q.SchemaHash)
	assert.Equal(t, "SELECT o.id FROM orders AS o", q.SQL)
	assert.JSONEq(t, `{"from": "orders", "select": ["id"]}`, string(q.Spec))
	assert.Empty(t, q.Drift)
	assert.True(t, resp.Data.Verified)
}

func TestHistoryOtherSchemaIsEmpty(t *testing.T) {
	catalog := tempCatalog(t)
	saveQueries(t, catalog, `{"from": "orders"}`)

	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("customers: {}\n"), 0o644))

	stdout, _, err := execute(t, nil, "history", "--schema", other, "--store", catalog)
	require.NoError(t, err)
	assert.Equal(t, "No saved queries.\n", stdout)
}

func TestHistoryMissingCatalog(t *testing.T) {
	stdout, _, err := execute(t, nil, "history", "--all", "--store", tempCatalog(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]")
}
