package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileText(t *testing.T) {
	stdout, _, err := execute(t, nil, "compile", "--schema", shopSchema, "testdata/orders.json")
	require.NoError(t, err)
	assert.Equal(t, "SELECT o.id, o.amount FROM orders AS o\n", stdout)
}

func TestCompilePretty(t *testing.T) {
	stdout, _, err := execute(t, nil, "compile", "-s", shopSchema, "testdata/orders.json", "--pretty")
	require.NoError(t, err)
	assert.Equal(t, "SELECT o.id, o.amount\nFROM orders AS o\n", stdout)
}

func TestCompileStdin(t *testing.T) {
	query := `{"from": "orders", "join": "products", "select": {"name": "title", "table": "products"}}`

	stdout, _, err := execute(t, strings.NewReader(query), "compile", "-s", shopSchema, "-")
	require.NoError(t, err)
	assert.Equal(t, "SELECT products.title FROM orders AS o"+
		" INNER JOIN order_items ON o.id = order_items.order_id"+
		" INNER JOIN products ON order_items.product_id = products.id\n", stdout)
}

func TestCompileJSON(t *testing.T) {
	stdout, _, err := execute(t, nil, "compile", "-s", shopSchema, "testdata/orders.json", "--format", "json", "--dialect", "postgres")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "SELECT o.id, o.amount FROM orders AS o", resp.Data.SQL)
	assert.Equal(t, "SELECT o.id, o.amount\nFROM orders AS o", resp.Data.Formatted)
	assert.Len(t, resp.Data.QueryID, 64)
	assert.Len(t, resp.Data.SchemaHash, 64)
	assert.Equal(t, "postgres", resp.Data.Dialect)
	assert.False(t, resp.Data.Saved)
}

func TestCompileQueryIDDependsOnDialect(t *testing.T) {
	compileID := func(dialect string) string {
		stdout, _, err := execute(t, nil, "compile", "-s", shopSchema, "testdata/orders.json", "--format", "json", "--dialect", dialect)
		require.NoError(t, err)
		var resp struct {
			Data CompileOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		return resp.Data.QueryID
	}

	assert.Equal(t, compileID("ansi"), compileID("ansi"))
	assert.NotEqual(t, compileID("ansi"), compileID("mysql"))
}

func TestCompileConfigFile(t *testing.T) {
	query := `{"from": "orders", "select": {"name": "amount", "function": "cents"}}`

	stdout, _, err := execute(t, strings.NewReader(query), "compile", "--config", "testdata/specql.yaml", "-", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "SELECT ROUND(o.amount, 2) AS amount_cents FROM orders AS o", resp.Data.SQL)
	assert.Equal(t, "mysql", resp.Data.Dialect)
}

func TestCompileConfigRejectsFunctionName(t *testing.T) {
	schemaPath, err := filepath.Abs(shopSchema)
	require.NoError(t, err)
	cfg := filepath.Join(t.TempDir(), "specql.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("schema: "+schemaPath+"\nfunctions:\n  - id: cents\n    name: \"ROUND(1)) --\"\n"), 0o644))

	stdout, _, err := execute(t, strings.NewReader(`{"from": "orders"}`), "compile", "--config", cfg, "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E009]")
	assert.Contains(t, stdout, "not a plain identifier")
}

func TestCompileStrictFlag(t *testing.T) {
	query := `{"from": "orders", "joins": [{"table": "customers", "parent": "typo"}]}`

	_, _, err := execute(t, strings.NewReader(query), "compile", "-s", shopSchema, "-")
	require.NoError(t, err)

	stdout, _, err := execute(t, strings.NewReader(query), "compile", "-s", shopSchema, "--strict", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E313]")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode string
	}{
		{"no schema", []string{"compile", "testdata/orders.json"}, "", "E010"},
		{"missing schema file", []string{"compile", "-s", "testdata/nope.yaml", "testdata/orders.json"}, "", "E005"},
		{"missing query file", []string{"compile", "-s", shopSchema, "testdata/nope.json"}, "", "E005"},
		{"malformed stdin", []string{"compile", "-s", shopSchema, "-"}, `{"from": `, "E004"},
		{"invalid definitions", []string{"compile", "-s", "testdata/invalid.yaml", "testdata/orders.json"}, "", "E201"},
		{"empty spec", []string{"compile", "-s", shopSchema, "-"}, `{}`, "E301"},
		{"unknown root", []string{"compile", "-s", shopSchema, "-"}, `{"from": "nope"}`, "E311"},
		{"unknown column", []string{"compile", "-s", shopSchema, "-"}, `{"from": "orders", "select": "nope"}`, "E321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, strings.NewReader(tt.stdin), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestCompileErrorJSON(t *testing.T) {
	stdout, _, err := execute(t, strings.NewReader(`{"from": "orders", "select": "nope"}`),
		"compile", "-s", shopSchema, "-", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E321", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `"nope"`)
}

func TestCompileSave(t *testing.T) {
	catalog := tempCatalog(t)
	args := []string{"compile", "-s", shopSchema, "testdata/orders.json", "--save", "--store", catalog}

	stdout, stderr, err := execute(t, nil, args...)
	require.NoError(t, err)
	assert.Equal(t, "SELECT o.id, o.amount FROM orders AS o\n", stdout)
	assert.Contains(t, stderr, "Saved query ")

	_, stderr, err = execute(t, nil, args...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "already saved")

	stdout, _, err = execute(t, nil, "compile", "-s", shopSchema, "testdata/orders.json", "--save", "--store", catalog, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Data.Saved)
}
