package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	All    bool // list queries of every saved schema
	Verify bool // recompile every listed query against its saved schema
}

// HistoryEntry is one saved query.
type HistoryEntry struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	SchemaHash string          `json:"schema_hash"`
	Dialect    string          `json:"dialect"`
	SQL        string          `json:"sql"`
	Spec       json.RawMessage `json:"spec"`
	Drift      string          `json:"drift,omitempty"`
}

// HistoryOutput is the JSON payload of the history command.
type HistoryOutput struct {
	SchemaHash string         `json:"schema_hash,omitempty"`
	Queries    []HistoryEntry `json:"queries"`
	Verified   bool           `json:"verified"`
	Drifted    int            `json:"drifted"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved queries",
		Long: `List the queries saved with "compile --save", oldest first.

By default only queries saved against the configured definitions are
listed. With --verify each listed query is compiled again against the
definitions it was saved with; any query whose SQL or id changed is
reported as drift.

Exit codes:
  0 - Success (and no drift with --verify)
  1 - Drift detected
  2 - Command error (catalog not found, etc.)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "list queries saved against any definitions")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompile saved queries and report drift")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var hash string
	if !opts.All {
		c, err := s.compiler()
		if err != nil {
			return err
		}
		if hash, err = c.SchemaHash(); err != nil {
			return s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
		}
	}

	st, err := s.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListQueries(ctx, hash)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	s.formatter.VerboseLog("Found %d saved query(ies)", len(records))

	out := HistoryOutput{SchemaHash: hash, Queries: make([]HistoryEntry, 0, len(records)), Verified: opts.Verify}
	v := &verifier{session: s, store: st, compilers: map[string]*compiler.Compiler{}}
	for _, rec := range records {
		spec, err := ir.MarshalIRValue(rec.Spec)
		if err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		entry := HistoryEntry{
			Seq:        rec.Seq,
			ID:         rec.ID,
			SchemaHash: rec.SchemaHash,
			Dialect:    rec.Dialect,
			SQL:        rec.SQL,
			Spec:       spec,
		}
		if opts.Verify {
			drift, err := v.check(ctx, rec)
			if err != nil {
				return err
			}
			if drift != "" {
				entry.Drift = drift
				out.Drifted++
			}
		}
		out.Queries = append(out.Queries, entry)
	}

	if s.formatter.Format == "json" {
		if out.Drifted > 0 {
			message := fmt.Sprintf("%d saved query(ies) drifted", out.Drifted)
			if err := s.formatter.Error(ErrCodeDrift, message, out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, message)
		}
		return s.formatter.Success(out)
	}
	return outputHistoryText(s.formatter, out)
}

// verifier recompiles saved queries, one compiler per (schema, dialect).
type verifier struct {
	session   *session
	store     *store.Store
	compilers map[string]*compiler.Compiler
}

// check returns a description of how rec no longer reproduces, or "".
func (v *verifier) check(ctx context.Context, rec store.QueryRecord) (string, error) {
	key := rec.SchemaHash + "/" + rec.Dialect
	c, ok := v.compilers[key]
	if !ok {
		saved, err := v.store.GetSchema(ctx, rec.SchemaHash)
		if err != nil {
			return "", v.session.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if c, err = v.session.compilerFor(saved.Definitions, rec.Dialect); err != nil {
			return "", err
		}
		v.compilers[key] = c
	}

	res, err := c.Query(rec.Spec)
	switch {
	case err != nil:
		return fmt.Sprintf("no longer compiles: %v", err), nil
	case res.SQL != rec.SQL:
		return fmt.Sprintf("SQL changed: %s", res.SQL), nil
	case res.QueryID != rec.ID:
		return fmt.Sprintf("query id changed: %s", res.QueryID), nil
	}
	return "", nil
}

// outputHistoryText prints one line per saved query.
func outputHistoryText(formatter *OutputFormatter, out HistoryOutput) error {
	w := formatter.Writer
	if len(out.Queries) == 0 {
		fmt.Fprintln(w, "No saved queries.")
		return nil
	}

	for _, q := range out.Queries {
		fmt.Fprintf(w, "%4d  %s  %-8s %s\n", q.Seq, shortID(q.ID), q.Dialect, q.SQL)
		if q.Drift != "" {
			fmt.Fprintf(w, "      ✗ %s\n", q.Drift)
		}
	}

	if !out.Verified {
		return nil
	}
	fmt.Fprintln(w)
	if out.Drifted > 0 {
		message := fmt.Sprintf("%d saved query(ies) drifted", out.Drifted)
		fmt.Fprintf(w, "✗ %s\n", message)
		return NewExitError(ExitFailure, message)
	}
	fmt.Fprintf(w, "✓ All %d saved query(ies) reproduce\n", len(out.Queries))
	return nil
}

// shortID abbreviates a content id for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
