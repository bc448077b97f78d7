package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/config"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/loader"
	"github.com/roach88/specql/internal/querysql"
	"github.com/roach88/specql/internal/store"
)

// session is the resolved configuration of one command invocation.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
}

// newSession resolves configuration from the config file, environment and
// the command's flags, and installs a text logger on the command's stderr.
func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	s := &session{
		cfg:    cfg,
		logger: logger,
		formatter: &OutputFormatter{
			Format:    cfg.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
			Verbose:   cfg.Verbose,
		},
	}
	if cfg.ConfigFile != "" {
		s.formatter.VerboseLog("Using config file %s", cfg.ConfigFile)
	}
	return s, nil
}

// definitions loads the configured definitions file.
func (s *session) definitions() (ir.IRValue, error) {
	if s.cfg.Schema == "" {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeNoSchema,
			"no table definitions: pass --schema or set schema in specql.yaml", nil)
	}
	defs, err := loader.LoadDefinitions(s.cfg.Schema)
	if err != nil {
		return nil, s.loadFailure(err)
	}
	s.formatter.VerboseLog("Loaded definitions from %s", s.cfg.Schema)
	return defs, nil
}

// compiler builds a compiler for the configured dialect, registers the
// configured functions and defines the configured definitions.
func (s *session) compiler() (*compiler.Compiler, error) {
	defs, err := s.definitions()
	if err != nil {
		return nil, err
	}
	return s.compilerFor(defs, s.cfg.SQLDialect().Name)
}

// compilerFor builds a compiler over defs rendering for dialect.
func (s *session) compilerFor(defs ir.IRValue, dialect string) (*compiler.Compiler, error) {
	d, err := querysql.DialectByName(dialect)
	if err != nil {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	c := compiler.New(
		compiler.WithDialect(d),
		compiler.WithStrict(s.cfg.Strict),
		compiler.WithLogger(s.logger),
	)
	for _, fn := range s.cfg.Functions {
		prefill, err := fn.Prefill()
		if err != nil {
			return nil, s.formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		if _, err := c.RegisterFunction(fn.ID, fn.Name, prefill...); err != nil {
			return nil, s.formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
	}

	if err := c.Define(defs); err != nil {
		return nil, s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}
	return c, nil
}

// openStore opens the catalog. Unless create is set, a missing catalog is
// an error rather than an empty new database.
func (s *session) openStore(create bool) (*store.Store, error) {
	path := s.cfg.StorePath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !create {
			return nil, s.formatter.Fail(ExitCommandError, loader.ErrCodeNotFound,
				fmt.Sprintf("catalog not found: %s", path), nil)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, s.formatter.Fail(ExitCommandError, ErrCodeStore,
				fmt.Sprintf("create catalog directory: %v", err), nil)
		}
	}

	st, err := store.Open(path, store.WithLogger(s.logger))
	if err != nil {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	s.logger.Debug("catalog opened", "path", path)
	return st, nil
}

// loadFailure reports a loader error with its code.
func (s *session) loadFailure(err error) error {
	var le *loader.LoadError
	if errors.As(err, &le) {
		return s.formatter.Fail(ExitCommandError, le.Code, le.Error(), nil)
	}
	return s.formatter.Fail(ExitCommandError, loader.ErrCodeGeneric, err.Error(), nil)
}

// codeOf returns the stable code carried by a compiler error.
func codeOf(err error) string {
	if code := compiler.ErrorCode(err); code != "" {
		return code
	}
	return loader.ErrCodeGeneric
}
