package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelware/sysql/assets"
	"github.com/modelware/sysql/internal/store"
)

// InitResult holds the init command output.
type InitResult struct {
	Database string `json:"database"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database schema from the bundled type definitions",
		Long: `Create (or open) the database and apply the bundled schema.

The DDL is generated ahead of time from the bundled schema document and
covers the core element and relationship types. Use the schema command
to generate DDL from a different schema document instead.

All statements are idempotent, so running init against an already
initialized database is safe.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}

	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		formatter.Error("OPEN_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	formatter.VerboseLog("Applying bundled schema to %s", opts.Database)
	if err := st.ExecDDL(cmd.Context(), assets.SchemaSQL); err != nil {
		formatter.Error("DDL_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "applying schema", err)
	}

	if opts.Format == "json" {
		return formatter.Success(InitResult{Database: opts.Database})
	}
	return formatter.Success(fmt.Sprintf("Initialized %s", opts.Database))
}
