package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/introspect"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/loader"
)

// IntrospectOptions holds flags for the introspect command.
type IntrospectOptions struct {
	*RootOptions
	Output string // output file path
}

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntrospectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "introspect <sqlite-file>",
		Short: "Derive table definitions from a SQLite database",
		Long: `Read the tables, primary keys and foreign keys of a SQLite database and
print them as table definitions.

Every single-column foreign key produces a join from the child table to
the parent and a reverse join from the parent to the child. The database
is opened read-only.

Examples:
  specql introspect shop.db
  specql introspect shop.db -o shop.yaml
  specql introspect shop.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write YAML definitions to a file")

	return cmd
}

func runIntrospect(opts *IntrospectOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s.formatter.Fail(ExitCommandError, loader.ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defs, err := introspectFile(ctx, path, introspect.WithLogger(s.logger))
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	s.formatter.VerboseLog("Found %d table(s) in %s", len(defs), path)

	var buf bytes.Buffer
	if err := introspect.EncodeYAML(&buf, defs); err != nil {
		return s.formatter.Fail(ExitCommandError, loader.ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		if s.formatter.Format == "json" {
			return s.formatter.Success(map[string]any{"tables": len(defs), "output": opts.Output})
		}
		fmt.Fprintf(s.formatter.Writer, "✓ Wrote %d table definition(s) to %s\n", len(defs), opts.Output)
		return nil
	}

	if s.formatter.Format == "json" {
		data, err := ir.MarshalIRValue(defs)
		if err != nil {
			return s.formatter.Fail(ExitCommandError, loader.ErrCodeGeneric, err.Error(), nil)
		}
		return s.formatter.Success(json.RawMessage(data))
	}
	_, err = s.formatter.Writer.Write(buf.Bytes())
	return err
}

// introspectFile opens path read-only and derives its definitions.
func introspectFile(ctx context.Context, path string, opts ...introspect.Option) (ir.IRObject, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return introspect.SQLite(ctx, db, opts...)
}
