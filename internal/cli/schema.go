package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelware/sysql/internal/ddl"
	"github.com/modelware/sysql/internal/schema"
	"github.com/modelware/sysql/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	Output string // write the DDL to this file instead of stdout
	Apply  bool   // apply the DDL to the database as well
}

// SchemaResult holds the schema command output for JSON format.
type SchemaResult struct {
	Definitions int    `json:"definitions"`
	Output      string `json:"output,omitempty"`
	Applied     bool   `json:"applied,omitempty"`
	DDL         string `json:"ddl,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema <schemas.json>",
		Short: "Generate DDL from a schema document",
		Long: `Resolve a JSON Schema document and emit the relational DDL for it.

Every definition's field set is expanded through its inheritance chain,
then all fields are unioned into the two physical tables. The emitted
text is deterministic for a given document, so generated DDL can be
checked in and diffed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write DDL to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "apply the generated DDL to the database")

	return cmd
}

func runSchema(rootOpts *RootOptions, opts *SchemaOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	f, err := os.Open(path)
	if err != nil {
		formatter.Error("OPEN_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening schema document", err)
	}
	defer f.Close()

	doc, err := schema.ParseDocument(f)
	if err != nil {
		formatter.Error("PARSE_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "parsing schema document", err)
	}
	formatter.VerboseLog("Parsed %d definitions from %s", len(doc.Defs), path)

	defs, err := schema.Resolve(doc)
	if err != nil {
		return schemaFailure(formatter, "resolving definitions", err)
	}

	text, err := ddl.Emit(defs)
	if err != nil {
		return schemaFailure(formatter, "emitting DDL", err)
	}

	result := SchemaResult{Definitions: len(defs)}

	switch {
	case opts.Output != "":
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			formatter.Error("WRITE_FAILED", err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing DDL", err)
		}
		result.Output = opts.Output
	case rootOpts.Format != "json":
		fmt.Fprint(cmd.OutOrStdout(), text)
	default:
		result.DDL = text
	}

	if opts.Apply {
		st, err := store.Open(rootOpts.Database)
		if err != nil {
			formatter.Error("OPEN_FAILED", err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening database", err)
		}
		defer st.Close()

		if err := st.ExecDDL(cmd.Context(), text); err != nil {
			formatter.Error("DDL_FAILED", err.Error(), nil)
			return WrapExitError(ExitFailure, "applying schema", err)
		}
		result.Applied = true
		formatter.VerboseLog("Applied schema to %s", rootOpts.Database)
	}

	if rootOpts.Format == "json" {
		return formatter.Success(result)
	}
	if result.Output != "" || result.Applied {
		return formatter.Success(fmt.Sprintf("Resolved %d definitions", result.Definitions))
	}
	return nil
}

// schemaFailure reports a resolution or emission error under its stable
// kind code.
func schemaFailure(formatter *OutputFormatter, message string, err error) error {
	code := "SCHEMA_FAILED"
	var se *schema.Error
	if errors.As(err, &se) {
		code = string(se.Kind)
	}
	formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, message, err)
}
