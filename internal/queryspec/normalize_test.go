package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specql/internal/ir"
)

func normalizeJSON(t *testing.T, src string) (*ir.QuerySpec, error) {
	t.Helper()
	v, err := ir.ParseJSON([]byte(src))
	require.NoError(t, err)
	return Normalize(v)
}

func TestNormalizeBareStrings(t *testing.T) {
	q, err := normalizeJSON(t, `{"from": "orders", "join": "customers", "select": "amount"}`)
	require.NoError(t, err)

	assert.Equal(t, []ir.JoinSpec{{Table: "orders"}, {Table: "customers"}}, q.Joins)
	assert.Equal(t, []ir.SelectSpec{{Name: "amount"}}, q.Selects)
}

func TestNormalizeFromUnshiftedToRoot(t *testing.T) {
	q, err := normalizeJSON(t, `{
		"joins": [{"id": "c", "table": "customers"}],
		"from": {"table": "orders", "alias": "o"}
	}`)
	require.NoError(t, err)

	require.Len(t, q.Joins, 2)
	assert.Equal(t, ir.JoinSpec{Table: "orders", Alias: "o"}, q.Root())
	assert.Equal(t, ir.JoinSpec{ID: "c", Table: "customers"}, q.Joins[1])
}

func TestNormalizeFirstJoinIsRootWithoutFrom(t *testing.T) {
	q, err := normalizeJSON(t, `{"joins": ["orders", "customers"]}`)
	require.NoError(t, err)

	assert.Equal(t, "orders", q.Root().Table)
	assert.Empty(t, q.Selects)
}

func TestNormalizeFirstSpellingWins(t *testing.T) {
	q, err := normalizeJSON(t, `{
		"from": "orders",
		"selects": ["b"],
		"select": ["a"],
		"columns": ["c"],
		"joins": ["x"],
		"join": ["y"]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "a", q.Selects[0].Name)
	assert.Equal(t, "y", q.Joins[1].Table)
}

func TestNormalizeDropsUnknownKeys(t *testing.T) {
	q, err := normalizeJSON(t, `{"from": "orders", "where": {"id": 1}, "group_by": ["x"], "limit": 5}`)
	require.NoError(t, err)

	assert.Equal(t, &ir.QuerySpec{
		Joins:   []ir.JoinSpec{{Table: "orders"}},
		Selects: []ir.SelectSpec{},
	}, q)
}

func TestNormalizeJoinEntryKeys(t *testing.T) {
	q, err := normalizeJSON(t, `{"from": "a", "joins": [
		{"id": 1, "name": "b", "parent": "x"},
		{"table": "c", "parent_id": "y"},
		{"table": "d", "parentId": "z"}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, ir.JoinSpec{ID: "1", Table: "b", ParentID: "x"}, q.Joins[1])
	assert.Equal(t, "y", q.Joins[2].ParentID)
	assert.Equal(t, "z", q.Joins[3].ParentID)
}

func TestNormalizeSelectObject(t *testing.T) {
	q, err := normalizeJSON(t, `{"from": "orders", "select": [
		{"column": "amount", "joinId": "o", "table": "orders", "alias": "a"},
		{"name": "x", "join_id": "j", "as": "y"},
		{"name": "n", "join": "k"},
		{"value": "hello", "as": "greeting"}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, ir.SelectSpec{Name: "amount", JoinID: "o", Table: "orders", As: "a"}, q.Selects[0])
	assert.Equal(t, ir.SelectSpec{Name: "x", JoinID: "j", As: "y"}, q.Selects[1])
	assert.Equal(t, "k", q.Selects[2].JoinID)
	assert.Equal(t, ir.SelectSpec{Value: ir.IRString("hello"), As: "greeting"}, q.Selects[3])
}

func TestNormalizeFunctionsAndArgs(t *testing.T) {
	tests := []struct {
		name     string
		sel      string
		expected []ir.FunctionCall
	}{
		{
			name:     "single function",
			sel:      `{"name": "amount", "function": "sum"}`,
			expected: []ir.FunctionCall{{Name: "sum"}},
		},
		{
			name:     "function list",
			sel:      `{"name": "amount", "functions": ["SUM", "ROUND"]}`,
			expected: []ir.FunctionCall{{Name: "SUM"}, {Name: "ROUND"}},
		},
		{
			name:     "single args value wraps twice",
			sel:      `{"name": "amount", "function": "ROUND", "args": 2}`,
			expected: []ir.FunctionCall{{Name: "ROUND", Args: []ir.IRValue{ir.IRInt(2)}}},
		},
		{
			name: "args parallel to functions",
			sel:  `{"name": "amount", "functions": ["SUM", "ROUND"], "args": [null, [2]]}`,
			expected: []ir.FunctionCall{
				{Name: "SUM"},
				{Name: "ROUND", Args: []ir.IRValue{ir.IRInt(2)}},
			},
		},
		{
			name:     "placeholder kept",
			sel:      `{"name": "amount", "function": "COALESCE", "args": [["_", 0]]}`,
			expected: []ir.FunctionCall{{Name: "COALESCE", Args: []ir.IRValue{ir.IRString("_"), ir.IRInt(0)}}},
		},
		{
			name:     "function object with own args",
			sel:      `{"name": "amount", "functions": [{"name": "ROUND", "args": 1}]}`,
			expected: []ir.FunctionCall{{Name: "ROUND", Args: []ir.IRValue{ir.IRInt(1)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := normalizeJSON(t, `{"from": "orders", "select": [`+tt.sel+`]}`)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, q.Selects[0].Functions)
		})
	}
}

func TestNormalizeEmptySpec(t *testing.T) {
	for _, src := range []string{`null`, `{}`, `{"select": ["a"]}`, `{"from": null}`} {
		t.Run(src, func(t *testing.T) {
			_, err := normalizeJSON(t, src)
			require.Error(t, err)

			var se *SpecError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ErrEmptySpec, se.Code)
		})
	}

	_, err := Normalize(nil)
	assert.True(t, IsSpecError(err))
}

func TestNormalizeInvalidShapes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"spec array", `["orders"]`, "spec"},
		{"from number", `{"from": 3}`, "from"},
		{"join missing table", `{"from": "a", "joins": [{"id": "x"}]}`, "joins[0]"},
		{"select number", `{"from": "a", "select": [1]}`, "select[0]"},
		{"select empty object", `{"from": "a", "select": [{}]}`, "select[0]"},
		{"value object", `{"from": "a", "select": [{"name": "x", "value": {}}]}`, "select[0].value"},
		{"alias array", `{"from": "a", "select": [{"name": "x", "as": []}]}`, "select[0].as"},
		{"function number", `{"from": "a", "select": [{"name": "x", "function": 1}]}`, "select[0].function[0]"},
		{"function with sql", `{"from": "a", "select": [{"name": "x", "functions": ["sum(1)) FROM b; DROP TABLE a; --"]}]}`, "select[0].functions[0]"},
		{"function object name with space", `{"from": "a", "select": [{"name": "x", "function": {"name": "my func"}}]}`, "select[0].function[0]"},
		{"function leading digit", `{"from": "a", "select": [{"name": "x", "function": "2x"}]}`, "select[0].function[0]"},
		{"arg object", `{"from": "a", "select": [{"name": "x", "function": "F", "args": [[{}]]}]}`, "select[0].function[0].args[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeJSON(t, tt.src)
			require.Error(t, err)

			var se *SpecError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ErrInvalidShape, se.Code)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}
