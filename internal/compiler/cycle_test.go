package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/schema"
)

func tables(t *testing.T, src string) []ir.TableDef {
	t.Helper()
	out, errs := schema.Normalize(parse(t, src), schema.CollectAll)
	require.Empty(t, errs)
	return out
}

func TestAnalyzeViaCyclesNone(t *testing.T) {
	warnings := AnalyzeViaCycles(tables(t, `{
		"orders": {"joins": [{"name": "products", "via": "order_items"}]},
		"order_items": {"joins": [{"name": "products"}]},
		"products": {"joins": []}
	}`))
	assert.Empty(t, warnings)
}

func TestAnalyzeViaCyclesNoViaJoins(t *testing.T) {
	assert.Empty(t, AnalyzeViaCycles(nil))
}

func TestAnalyzeViaCyclesSelfLoop(t *testing.T) {
	warnings := AnalyzeViaCycles(tables(t, `{
		"a": {"joins": [{"name": "b", "via": "b"}]},
		"b": {"joins": []}
	}`))

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a->b", "a->b"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "expands into itself")
}

func TestAnalyzeViaCyclesTwoRelationships(t *testing.T) {
	warnings := AnalyzeViaCycles(tables(t, `{
		"a": {"joins": [{"name": "b", "via": "c"}, {"name": "c", "via": "b"}]},
		"b": {"joins": []},
		"c": {"joins": []}
	}`))

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a->b", "a->c", "a->b"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "a->b => a->c => a->b")
}

func TestAnalyzeViaCyclesChainIsNotACycle(t *testing.T) {
	warnings := AnalyzeViaCycles(tables(t, `{
		"a": {"joins": [{"name": "d", "via": "b"}, {"name": "b", "via": "c"}]},
		"b": {"joins": [{"name": "d"}]},
		"c": {"joins": [{"name": "b"}]},
		"d": {"joins": []}
	}`))
	assert.Empty(t, warnings)
}
