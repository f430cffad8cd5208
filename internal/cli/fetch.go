package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelware/sysql/internal/fetch"
	"github.com/modelware/sysql/internal/importer"
	"github.com/modelware/sysql/internal/model"
	"github.com/modelware/sysql/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	Config string // YAML config file

	BaseURL     string
	ProjectID   string
	ProjectName string
	CommitID    string
	BranchID    string
	BranchName  string

	Username string
	Password string
	Insecure bool
	PageSize int

	Dump     string // also write the fetched elements to this file
	Pretty   bool   // indent the dump
	NoImport bool   // fetch (and dump) without touching the database

	roleAliases map[string]string // from config only
}

// FetchResult holds the fetch command output.
type FetchResult struct {
	Project string `json:"project"`
	Commit  string `json:"commit"`
	Fetched int    `json:"fetched"`
	Dump    string `json:"dump,omitempty"`

	Import *ImportResult `json:"import,omitempty"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch [base-url]",
		Short: "Fetch a commit's elements from a repository API",
		Long: `Fetch every element of one commit from a repository API and import it.

The project is selected by id or name prefix, the commit by id, branch,
or the project's default branch. Pages are followed in order via the
Link response header. Transient server errors are retried with backoff;
client errors, TLS failures, and malformed pagination are fatal.

Pass --dump to also write the fetched elements as a JSON file, or
--no-import to skip the database entirely.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.BaseURL = args[0]
			}
			return runFetch(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.ProjectID, "project-id", "", "project id")
	cmd.Flags().StringVar(&opts.ProjectName, "project-name", "", "project name prefix")
	cmd.Flags().StringVar(&opts.CommitID, "commit-id", "", "commit id")
	cmd.Flags().StringVar(&opts.BranchID, "branch-id", "", "branch id")
	cmd.Flags().StringVar(&opts.BranchName, "branch-name", "", "branch name prefix")
	cmd.Flags().StringVar(&opts.Username, "username", "", "basic auth username (or "+EnvUsername+")")
	cmd.Flags().StringVar(&opts.Password, "password", "", "basic auth password (or "+EnvPassword+")")
	cmd.Flags().BoolVar(&opts.Insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "elements per page (0 = server default)")
	cmd.Flags().StringVar(&opts.Dump, "dump", "", "write fetched elements to this JSON file")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent the dump file")
	cmd.Flags().BoolVar(&opts.NoImport, "no-import", false, "do not import into the database")

	return cmd
}

func runFetch(rootOpts *RootOptions, opts *FetchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	if err := applyConfig(opts); err != nil {
		formatter.Error("CONFIG_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	if opts.BaseURL == "" {
		err := fmt.Errorf("a base URL is required (argument or config base_url)")
		formatter.Error("CONFIG_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading config", err)
	}

	var creds *fetch.Credentials
	if opts.Username != "" || opts.Password != "" {
		creds = &fetch.Credentials{Username: opts.Username, Password: opts.Password}
	}
	client, err := fetch.NewClient(fetch.Options{
		BaseURL:            opts.BaseURL,
		Credentials:        creds,
		InsecureSkipVerify: opts.Insecure,
		PageSize:           opts.PageSize,
	})
	if err != nil {
		formatter.Error("CONFIG_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "configuring client", err)
	}

	ctx := cmd.Context()

	project, err := client.ResolveProject(ctx, fetch.ProjectSelector{
		ID:   opts.ProjectID,
		Name: opts.ProjectName,
	})
	if err != nil {
		return fetchFailure(formatter, "resolving project", err)
	}
	formatter.VerboseLog("Project %q (%s)", project.Name, project.ID)

	commit, err := client.ResolveCommit(ctx, project, fetch.CommitSelector{
		CommitID:   opts.CommitID,
		BranchID:   opts.BranchID,
		BranchName: opts.BranchName,
	})
	if err != nil {
		return fetchFailure(formatter, "resolving commit", err)
	}
	formatter.VerboseLog("Commit %s", commit)

	elements, err := client.FetchElements(ctx, project.ID, commit)
	if err != nil {
		return fetchFailure(formatter, "fetching elements", err)
	}
	formatter.VerboseLog("Fetched %d elements", len(elements))

	result := FetchResult{
		Project: project.ID,
		Commit:  commit,
		Fetched: len(elements),
	}

	if opts.Dump != "" {
		data, err := marshalDump(elements, opts.Pretty)
		if err != nil {
			formatter.Error("DUMP_FAILED", err.Error(), nil)
			return WrapExitError(ExitFailure, "encoding dump", err)
		}
		if err := os.WriteFile(opts.Dump, data, 0o644); err != nil {
			formatter.Error("DUMP_FAILED", err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing dump", err)
		}
		result.Dump = opts.Dump
		formatter.VerboseLog("Wrote dump to %s", opts.Dump)
	}

	if !opts.NoImport {
		st, err := store.Open(rootOpts.Database)
		if err != nil {
			formatter.Error("OPEN_FAILED", err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening database", err)
		}
		defer st.Close()

		summary, err := importer.Import(ctx, st, elements, importer.Options{RoleAliases: opts.roleAliases})
		if err != nil {
			return importFailure(formatter, err)
		}

		imported := buildImportResult(formatter, summary)
		result.Import = &imported
	}

	if rootOpts.Format == "json" {
		return formatter.Success(result)
	}
	if result.Import != nil {
		return formatter.Success(fmt.Sprintf("Fetched %d elements from commit %s; imported %d elements, %d relations",
			result.Fetched, result.Commit, result.Import.Elements, result.Import.Relations))
	}
	return formatter.Success(fmt.Sprintf("Fetched %d elements from commit %s", result.Fetched, result.Commit))
}

// applyConfig fills unset fetch options from the config file and the
// environment. Precedence: flag, then environment, then config.
func applyConfig(opts *FetchOptions) error {
	if opts.Username == "" {
		opts.Username = os.Getenv(EnvUsername)
	}
	if opts.Password == "" {
		opts.Password = os.Getenv(EnvPassword)
	}

	if opts.Config == "" {
		return nil
	}
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return err
	}

	if opts.BaseURL == "" {
		opts.BaseURL = cfg.BaseURL
	}
	if opts.Username == "" {
		opts.Username = cfg.Username
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.PageSize == 0 {
		opts.PageSize = cfg.PageSize
	}
	if cfg.Insecure {
		opts.Insecure = true
	}
	if opts.ProjectID == "" && opts.ProjectName == "" {
		opts.ProjectName = cfg.Project
	}
	if opts.CommitID == "" && opts.BranchID == "" && opts.BranchName == "" {
		opts.BranchName = cfg.Branch
	}
	opts.roleAliases = cfg.RoleAliases
	return nil
}

// fetchFailure reports a fetch error under its stable kind code.
func fetchFailure(formatter *OutputFormatter, message string, err error) error {
	code := "FETCH_FAILED"
	var fe *fetch.Error
	if errors.As(err, &fe) {
		code = string(fe.Kind)
	}
	formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, message, err)
}

// marshalDump encodes the fetched elements the way the API serves them,
// as one JSON array.
func marshalDump(elements []model.Element, pretty bool) ([]byte, error) {
	if elements == nil {
		elements = []model.Element{}
	}
	if pretty {
		return json.MarshalIndent(elements, "", "  ")
	}
	return json.Marshal(elements)
}
