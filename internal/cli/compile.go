package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/loader"
	"github.com/roach88/specql/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Save   bool // record the query in the catalog
	Pretty bool // print the formatted statement
}

// CompileOutput is the JSON payload of a compiled query.
type CompileOutput struct {
	SQL        string `json:"sql"`
	Formatted  string `json:"formatted"`
	QueryID    string `json:"query_id"`
	SchemaHash string `json:"schema_hash"`
	Dialect    string `json:"dialect"`
	Saved      bool   `json:"saved,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file|->",
		Short: "Compile a query specification to SQL",
		Long: `Compile a query specification to SQL against the configured definitions.

The query file may be JSON, YAML or CUE; "-" reads a JSON query from stdin.
With --save the compiled query and its definitions are recorded in the
catalog, keyed by query id.

Examples:
  specql compile --schema shop.yaml orders.json
  echo '{"from": "orders", "select": ["id"]}' | specql compile -s shop.yaml -
  specql compile -s shop.yaml orders.json --pretty --dialect mysql
  specql compile -s shop.yaml orders.json --save --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Save, "save", false, "record the compiled query in the catalog")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "print one clause per line")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	spec, err := readQuery(path, cmd.InOrStdin())
	if err != nil {
		return s.loadFailure(err)
	}

	c, err := s.compiler()
	if err != nil {
		return err
	}

	res, err := c.Query(spec)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}
	s.formatter.VerboseLog("Query id %s", res.QueryID)

	out := CompileOutput{
		SQL:        res.SQL,
		Formatted:  res.Formatted,
		QueryID:    res.QueryID,
		SchemaHash: res.SchemaHash,
		Dialect:    c.Dialect().Name,
	}

	if opts.Save {
		saved, err := saveQuery(cmd.Context(), s, c, spec, res)
		if err != nil {
			return err
		}
		out.Saved = saved
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(out)
	}

	w := s.formatter.Writer
	if opts.Pretty {
		fmt.Fprintln(w, res.Formatted)
	} else {
		fmt.Fprintln(w, res.SQL)
	}
	if opts.Save {
		if out.Saved {
			fmt.Fprintf(s.formatter.GetErrWriter(), "Saved query %s\n", res.QueryID)
		} else {
			fmt.Fprintf(s.formatter.GetErrWriter(), "Query %s already saved\n", res.QueryID)
		}
	}
	return nil
}

// readQuery loads a query file, or a JSON query from stdin for "-".
func readQuery(path string, stdin io.Reader) (ir.IRValue, error) {
	if path != "-" {
		return loader.LoadQuerySpec(path)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, &loader.LoadError{Code: loader.ErrCodeLoadFailed, Path: "stdin", Message: err.Error()}
	}
	return loader.Parse(data, loader.FormatJSON, "stdin")
}

// saveQuery records the definitions and the compiled query in the catalog.
// It reports whether the query was new.
func saveQuery(ctx context.Context, s *session, c *compiler.Compiler, spec ir.IRValue, res *compiler.Result) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := s.openStore(true)
	if err != nil {
		return false, err
	}
	defer st.Close()

	tables, err := c.Tables()
	if err != nil {
		return false, s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}
	public, err := c.PublicSchema()
	if err != nil {
		return false, s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}

	if _, err := st.SaveSchema(ctx, res.SchemaHash, tables, public); err != nil {
		return false, s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	inserted, err := st.SaveQuery(ctx, store.QueryRecord{
		ID:         res.QueryID,
		SchemaHash: res.SchemaHash,
		Dialect:    c.Dialect().Name,
		Spec:       spec,
		SQL:        res.SQL,
		Formatted:  res.Formatted,
	})
	if err != nil {
		return false, s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	s.logger.Debug("query saved", "query_id", res.QueryID, "inserted", inserted)
	return inserted, nil
}
