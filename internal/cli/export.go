package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	SQLite  string
	Archive string

	// IDGenerator overrides the UUIDv7 run ids (for testing).
	IDGenerator export.IDGenerator
}

// ExportResult describes what was written.
type ExportResult struct {
	Entries int    `json:"entries"`
	RunID   string `json:"run_id,omitempty"`
	SQLite  string `json:"sqlite,omitempty"`
	Archive string `json:"archive,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Copy a log into SQLite or a zstd archive",
		Long: `Export a snapshot of the log. The log itself is not modified.

--sqlite appends a run to a SQLite database (tables runs and entries);
--archive writes the log lines as a zstd-compressed stream.

Examples:
  tix export sensor.jsonl --sqlite sensor.db
  tix export sensor.jsonl --archive sensor.jsonl.zst`,
		Args:          pathArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SQLite, "sqlite", "", "SQLite database to export into")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "zstd archive file to write")

	return cmd
}

func runExport(opts *ExportOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if opts.SQLite == "" && opts.Archive == "" {
		return NewExitError(ExitCommandError, "nothing to export: use --sqlite or --archive")
	}

	s, _, err := openStore(cmd, opts.RootOptions, args, 0)
	if err != nil {
		return out.Error(ExitCommandError, "open failed", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := ExportResult{Entries: s.Len(), SQLite: opts.SQLite, Archive: opts.Archive}
	if opts.SQLite != "" {
		runID, err := exportSQLite(ctx, opts, s)
		if err != nil {
			return out.Error(ExitCommandError, "sqlite export failed", err)
		}
		result.RunID = runID
	}
	if opts.Archive != "" {
		if err := exportArchive(opts.Archive, s); err != nil {
			return out.Error(ExitCommandError, "archive export failed", err)
		}
	}

	var lines []string
	if result.SQLite != "" {
		lines = append(lines, fmt.Sprintf("exported %d entries to %s (run %s)", result.Entries, result.SQLite, result.RunID))
	}
	if result.Archive != "" {
		lines = append(lines, fmt.Sprintf("exported %d entries to %s", result.Entries, result.Archive))
	}
	return out.Success(result, strings.Join(lines, "\n"))
}

func exportSQLite(ctx context.Context, opts *ExportOptions, s *timeindex.Store[any]) (string, error) {
	var dbOpts []export.Option
	if opts.IDGenerator != nil {
		dbOpts = append(dbOpts, export.WithIDGenerator(opts.IDGenerator))
	}
	db, err := export.OpenDB(opts.SQLite, dbOpts...)
	if err != nil {
		return "", err
	}
	defer db.Close()

	run, err := export.WriteStore(ctx, db, s)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func exportArchive(path string, s *timeindex.Store[any]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := export.WriteArchive(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
