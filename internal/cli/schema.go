package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specql/internal/ir"
)

// SchemaOutput is the JSON payload of the schema command.
type SchemaOutput struct {
	SchemaHash string           `json:"schema_hash"`
	Tables     []ir.PublicTable `json:"tables"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the public schema",
		Long: `Print the tables, columns and joins visible to query authors.

Hidden tables, hidden columns, hidden joins and joins that target a hidden
table are left out.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	c, err := s.compiler()
	if err != nil {
		return err
	}

	public, err := c.PublicSchema()
	if err != nil {
		return s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}
	hash, err := c.SchemaHash()
	if err != nil {
		return s.formatter.Fail(ExitCommandError, codeOf(err), err.Error(), nil)
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(SchemaOutput{SchemaHash: hash, Tables: public})
	}
	writeSchemaText(s.formatter.Writer, public)
	return nil
}

// writeSchemaText prints one block per table:
//
//	orders AS o
//	  columns: id, amount
//	  joins:   customers (orders.customer_id = customers.id)
func writeSchemaText(w io.Writer, public []ir.PublicTable) {
	for i, t := range public {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if t.Alias != "" && t.Alias != t.Name {
			fmt.Fprintf(w, "%s AS %s\n", t.Name, t.Alias)
		} else {
			fmt.Fprintln(w, t.Name)
		}

		cols := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = c.Name
			if c.Alias != "" {
				cols[j] += " AS " + c.Alias
			}
		}
		fmt.Fprintf(w, "  columns: %s\n", strings.Join(cols, ", "))

		for j, jd := range t.Joins {
			label := "  joins:  "
			if j > 0 {
				label = "          "
			}
			var desc string
			switch {
			case jd.Via != "":
				desc = fmt.Sprintf("%s (via %s", jd.Target, jd.Via)
			case jd.SourceKey == "":
				desc = fmt.Sprintf("%s (indirect", jd.Target)
			default:
				desc = fmt.Sprintf("%s (%s.%s = %s.%s", jd.Target, t.Name, jd.SourceKey, jd.Target, jd.TargetKey)
			}
			if jd.Type == ir.JoinLeft {
				desc += ", left"
			}
			fmt.Fprintf(w, "%s %s)\n", label, desc)
		}
	}
}
