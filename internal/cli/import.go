package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelware/sysql/internal/importer"
	"github.com/modelware/sysql/internal/model"
	"github.com/modelware/sysql/internal/store"
)

// ImportResult holds the import command output.
type ImportResult struct {
	Elements      int      `json:"elements"`
	Relations     int      `json:"relations"`
	SkippedValues int      `json:"skipped_values,omitempty"`
	Dangling      []string `json:"dangling,omitempty"`
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	Config string // YAML config file (role aliases)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <elements.json>",
		Short: "Import an element dump into the database",
		Long: `Import a JSON array of elements into an initialized database.

The whole dump is written in one transaction: elements first, then one
relation row per reference-valued property. Re-importing a dump is
idempotent, and re-importing a changed dump replaces exactly the
changed rows. References to elements missing from the dump are skipped
and reported, not fatal; an element without an identifier or type
aborts the import.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML config file")

	return cmd
}

func runImport(rootOpts *RootOptions, opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	var roles map[string]string
	if opts.Config != "" {
		cfg, err := LoadConfig(opts.Config)
		if err != nil {
			formatter.Error("CONFIG_FAILED", err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading config", err)
		}
		roles = cfg.RoleAliases
	}

	f, err := os.Open(path)
	if err != nil {
		formatter.Error("OPEN_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening dump", err)
	}
	defer f.Close()

	elements, err := model.ParseElements(f)
	if err != nil {
		formatter.Error("PARSE_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "parsing dump", err)
	}
	formatter.VerboseLog("Parsed %d elements from %s", len(elements), path)

	st, err := store.Open(rootOpts.Database)
	if err != nil {
		formatter.Error("OPEN_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	summary, err := importer.Import(cmd.Context(), st, elements, importer.Options{RoleAliases: roles})
	if err != nil {
		return importFailure(formatter, err)
	}

	return reportImport(formatter, summary)
}

// importFailure reports a fatal import error under its stable kind code.
func importFailure(formatter *OutputFormatter, err error) error {
	code := "IMPORT_FAILED"
	var ie *importer.Error
	if errors.As(err, &ie) {
		code = string(ie.Kind)
	}
	formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, "importing elements", err)
}

// buildImportResult converts a summary for output, sending dangling
// reference warnings to the diagnostic writer so they are visible
// without corrupting JSON output.
func buildImportResult(formatter *OutputFormatter, summary *importer.Summary) ImportResult {
	result := ImportResult{
		Elements:      summary.Elements,
		Relations:     summary.Relations,
		SkippedValues: summary.SkippedValues,
	}
	for _, d := range summary.Dangling {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", d)
		result.Dangling = append(result.Dangling, d.String())
	}
	return result
}

// reportImport renders an import summary.
func reportImport(formatter *OutputFormatter, summary *importer.Summary) error {
	result := buildImportResult(formatter, summary)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Imported %d elements, %d relations (%d dangling references skipped)",
		result.Elements, result.Relations, len(result.Dangling)))
}
