package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
)

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [path] <timestamp>",
		Short: "Look up the entry for a point in time",
		Long: `Resolve a timestamp to an entry using the lookup policy.

Policies (--policy):
  nearest_prev  latest entry at or before the timestamp (default)
  nearest_next  earliest entry at or after the timestamp
  nearest       the closer of the two, the earlier one on a tie

Exit codes:
  0 - Entry found
  1 - No data (empty log, or nothing on the policy's side of the timestamp)
  2 - Command error

Examples:
  tix get sensor.jsonl 1734307200
  tix get sensor.jsonl 2024-12-16T00:00:00Z --policy nearest`,
		Args:          pathArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args, cmd)
		},
	}
}

func runGet(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	s, rest, err := openStore(cmd, opts, args, 1)
	if err != nil {
		return out.Error(ExitCommandError, "open failed", err)
	}
	defer s.Close()

	ts, err := parseTimestamp(rest[0])
	if err != nil {
		return out.Error(ExitCommandError, "invalid timestamp", err)
	}
	e, err := s.GetEntry(ts)
	if err != nil {
		return out.Error(exitCodeFor(err), "get failed", err)
	}

	view := viewOf(e)
	return out.Success(view, view.String())
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(opts *RootOptions) *cobra.Command {
	return newEndCommand(opts, "latest", "Print the most recent entry")
}

// NewEarliestCommand creates the earliest command.
func NewEarliestCommand(opts *RootOptions) *cobra.Command {
	return newEndCommand(opts, "earliest", "Print the oldest entry")
}

func newEndCommand(opts *RootOptions, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:           name + " [path]",
		Short:         short,
		Args:          pathArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)

			s, _, err := openStore(cmd, opts, args, 0)
			if err != nil {
				return out.Error(ExitCommandError, "open failed", err)
			}
			defer s.Close()

			end := s.Latest
			if name == "earliest" {
				end = s.Earliest
			}
			e, ok := end()
			if !ok {
				err := &timeindex.Error{Kind: timeindex.ErrEmpty, Op: name, Path: s.Path(), Msg: "no entries recorded"}
				return out.Error(ExitFailure, name+" failed", err)
			}

			view := viewOf(e)
			return out.Success(view, view.String())
		},
	}
}
