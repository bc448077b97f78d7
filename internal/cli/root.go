package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
//
// Flags are also read back through config.Load, which layers them over
// specql.yaml and SPECQL_* variables; commands use the resolved config.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // Explicit config file
	Schema  string // Definitions file or CUE package directory
	Dialect string
	Strict  bool
	Store   string // Saved-query catalog path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the specql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "specql",
		Short: "specql - declarative queries compiled to SQL",
		Long: `Compile declarative JSON query specifications to SQL against a schema of
table definitions.

Definitions declare tables, columns and the joins between them. A query
names a root table, the tables to join and the columns to select; specql
resolves join keys, expands joins through intermediate tables and renders
a SELECT statement for the configured dialect.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.Config, "config", "c", "", "config file (default: specql.yaml in the working directory)")
	flags.StringVarP(&opts.Schema, "schema", "s", "", "table definitions file or CUE package directory")
	flags.StringVar(&opts.Dialect, "dialect", "ansi", "SQL dialect (ansi|postgres|sqlite|mysql|mssql)")
	flags.BoolVar(&opts.Strict, "strict", false, "reject unknown parent and join ids")
	flags.StringVar(&opts.Store, "store", ".specql/catalog.db", "saved-query catalog path")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewIntrospectCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
