package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func TestTestCommandPasses(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ basics\n")
	assert.Contains(t, stdout, "✓ unknown_target\n")
	assert.Contains(t, stdout, "Test Summary: 6 passed, 0 failed, 6 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", scenariosDir, "--filter", "via")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ via\n")
	assert.NotContains(t, stdout, "basics")
	assert.Contains(t, stdout, "1 total")
}

func TestTestCommandJSON(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", scenariosDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 6, resp.Data.Passed)
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Len(t, resp.Data.Scenarios, 6)
}

func TestTestCommandUpdateGolden(t *testing.T) {
	golden := t.TempDir()

	_, _, err := execute(t, nil, "test", scenariosDir, "--golden", golden, "--filter", "basics", "--update")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(golden, "basics.golden"))
	require.NoError(t, err)

	stdout, _, err := execute(t, nil, "test", scenariosDir, "--golden", golden, "--filter", "basics")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ basics\n")
}

func TestTestCommandMissingGolden(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", scenariosDir, "--golden", t.TempDir(), "--filter", "via")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ via\n")
	assert.Contains(t, stdout, "golden mismatch")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.Mkdir(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "wrong.yaml"), []byte(`name: wrong
definitions:
  t: {columns: [id]}
cases:
  - name: select
    query: {from: t, select: [id]}
    expect:
      sql: "SELECT id FROM t"
`), 0o644))

	stdout, _, err := execute(t, nil, "test", scenarios, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong\n")
	assert.Contains(t, stdout, "SELECT t.id FROM t")
	assert.Contains(t, stdout, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, _, err := execute(t, nil, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
