package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

const shopSchema = "testdata/shop.yaml"

// execute runs the root command with args and returns what it wrote.
func execute(t *testing.T, stdin io.Reader, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.SetIn(stdin)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// tempCatalog returns a catalog path inside a fresh directory that does
// not exist yet.
func tempCatalog(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "catalog", "catalog.db")
}
