package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Config     string // config file, tix.yaml in the working directory if empty
	Schema     string // CUE schema file, overrides the config
	Definition string // definition inside Schema
	Policy     string // lookup policy, overrides the config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tix CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tix",
		Short: "tix - time-indexed append-only logs",
		Long: `Inspect and append to time-indexed JSON-lines logs.

Each line of a log is {"t":<seconds>,"v":<value>} with non-decreasing
timestamps. Values are checked against a CUE definition when --schema (or the
schema entry of tix.yaml) is given.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Policy != "" && !timeindex.Policy(opts.Policy).Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid policy %q: must be one of %v", opts.Policy, timeindex.Policies))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "config file (default ./tix.yaml if present)")
	flags.StringVar(&opts.Schema, "schema", "", "CUE file describing values")
	flags.StringVar(&opts.Definition, "definition", "", "definition in the schema file (default #Value)")
	flags.StringVar(&opts.Policy, "policy", "", "lookup policy (nearest_prev|nearest_next|nearest)")

	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewEarliestCommand(opts))
	cmd.AddCommand(NewRangeCommand(opts))
	cmd.AddCommand(NewStatCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewFollowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// logger writes to the command's stderr so JSON output stays clean.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.Verbose)
}
