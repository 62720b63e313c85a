package cli

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"
)

// RangeOptions holds flags for the range command.
type RangeOptions struct {
	*RootOptions
	From string
	To   string
}

// NewRangeCommand creates the range command.
func NewRangeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "range [path]",
		Short: "Print entries within a time range",
		Long: `Print every entry with from <= t <= to in log order, one per line.
Both bounds are optional. An empty result is not an error.

Examples:
  tix range sensor.jsonl --from 1734307200 --to 1734310800
  tix range sensor.jsonl --from 2024-12-16T00:00:00Z --format json`,
		Args:          pathArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "inclusive lower bound, seconds or RFC 3339")
	cmd.Flags().StringVar(&opts.To, "to", "", "inclusive upper bound, seconds or RFC 3339")

	return cmd
}

func runRange(opts *RangeOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	from, to := math.Inf(-1), math.Inf(1)
	var err error
	if opts.From != "" {
		if from, err = parseTimestamp(opts.From); err != nil {
			return out.Error(ExitCommandError, "invalid --from", err)
		}
	}
	if opts.To != "" {
		if to, err = parseTimestamp(opts.To); err != nil {
			return out.Error(ExitCommandError, "invalid --to", err)
		}
	}

	s, _, err := openStore(cmd, opts.RootOptions, args, 0)
	if err != nil {
		return out.Error(ExitCommandError, "open failed", err)
	}
	defer s.Close()

	views := []EntryView{}
	for e := range s.Range(from, to) {
		views = append(views, viewOf(e))
	}

	if opts.Format == "json" {
		return json.NewEncoder(out.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   map[string]any{"entries": views, "count": len(views)},
		})
	}
	for _, v := range views {
		fmt.Fprintln(out.Writer, v)
	}
	return nil
}
