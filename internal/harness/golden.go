package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is the fixture directory used by RunWithGolden, relative to the
// test's package directory.
const GoldenDir = "testdata/golden"

// Snapshot renders a result as golden file content: one block per case
// holding its formatted SQL or its error code.
//
//	-- case_name
//	SELECT ...
//	FROM ...
//
//	-- other_case
//	error: E321
func Snapshot(result *Result) []byte {
	var buf bytes.Buffer
	if result.DefineError != "" {
		fmt.Fprintf(&buf, "-- define\nerror: %s\n", result.DefineError)
		return buf.Bytes()
	}
	for i, cr := range result.Cases {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "-- %s\n", cr.Name)
		switch {
		case cr.Formatted != "":
			buf.WriteString(cr.Formatted)
		case cr.ErrorCode != "":
			fmt.Fprintf(&buf, "error: %s", cr.ErrorCode)
		default:
			buf.WriteString("error: uncoded")
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}

// GoldenPath returns the golden file of a scenario under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CheckGolden compares a result's snapshot with the golden file under dir,
// outside of a test binary. With update set, the file is (re)written and
// the check passes. A missing golden file is reported as a mismatch.
func CheckGolden(dir string, result *Result, update bool) (match bool, err error) {
	path := GoldenPath(dir, result.Scenario)
	actual := Snapshot(result)

	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, actual, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}

	expected, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	return bytes.Equal(expected, actual), nil
}
