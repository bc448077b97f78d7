package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Schema string                     `json:"schema"`
	Errors []compiler.ValidationError `json:"errors"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [definitions]",
		Short: "Report every problem in the table definitions",
		Long: `Validate table definitions without compiling any query.

Unlike compile, validation does not stop at the first problem: every
shape error, unknown join target and unknown via table is reported,
together with joins that can never resolve at query time.

The definitions argument defaults to the configured schema.

Exit codes:
  0 - Definitions are valid
  1 - One or more problems were found
  2 - Command error (missing file, unreadable definitions)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		s.cfg.Schema = args[0]
	}

	defs, err := s.definitions()
	if err != nil {
		return err
	}

	problems := compiler.Validate(defs)
	for _, p := range problems {
		s.formatter.VerboseLog("%s", p.Error())
	}

	result := ValidationResult{
		Valid:  len(problems) == 0,
		Schema: s.cfg.Schema,
		Errors: problems,
	}
	if result.Valid {
		return outputValidateSuccess(s.formatter, result)
	}
	return outputValidationErrors(s.formatter, result)
}

// outputValidateSuccess outputs successful validation result.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: definitions are valid\n", result.Schema)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	message := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))

	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeInvalid, message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s: %s\n\n", result.Schema, message)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, message)
}
