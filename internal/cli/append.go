package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/canonical"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	At string
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append [path] <json>",
		Short: "Durably append a value",
		Long: `Validate a JSON value and append it to the log.

The entry is timestamped with the current time unless --at is given. The
command returns once the record is fsynced. Timestamps earlier than the latest
entry are rejected.

Examples:
  tix append sensor.jsonl '{"temperature":21.5}'
  tix append sensor.jsonl '{"temperature":21.5}' --at 2024-12-16T00:00:00Z
  tix append sensor.jsonl 42 --at 1734307200.5`,
		Args:          pathArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "timestamp in seconds or RFC 3339 (default now)")

	return cmd
}

func runAppend(opts *AppendOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	s, rest, err := openStore(cmd, opts.RootOptions, args, 1)
	if err != nil {
		return out.Error(ExitCommandError, "open failed", err)
	}
	defer s.Close()

	v, err := canonical.Unmarshal([]byte(rest[0]))
	if err != nil {
		return out.Error(ExitCommandError, "invalid value", err)
	}

	var e timeindex.Entry[any]
	if opts.At != "" {
		ts, perr := parseTimestamp(opts.At)
		if perr != nil {
			return out.Error(ExitCommandError, "invalid --at", perr)
		}
		e, err = s.AppendAt(v, ts)
	} else {
		e, err = s.Append(v)
	}
	if err != nil {
		return out.Error(ExitCommandError, "append failed", err)
	}

	view := viewOf(e)
	return out.Success(view, view.String())
}
