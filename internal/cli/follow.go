package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/follow"
)

// NewFollowCommand creates the follow command.
func NewFollowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "follow [path]",
		Short: "Print entries as they are appended",
		Long: `Print every entry in the log, then keep printing new entries as another
process appends them, until interrupted.

With --format json each entry is printed as one JSON object per line.`,
		Args:          pathArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(opts, args, cmd)
		},
	}
}

func runFollow(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	t, err := resolveTarget(opts, args, 0)
	if err != nil {
		return out.Error(ExitCommandError, "open failed", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.logger(cmd)
	logger.Info("following", "path", t.path)

	enc := json.NewEncoder(out.Writer)
	codec := timeindex.NewCodec[any](t.schema)
	err = follow.Follow(ctx, t.path, codec, func(e timeindex.Entry[any]) error {
		view := viewOf(e)
		if opts.Format == "json" {
			return enc.Encode(view)
		}
		_, err := fmt.Fprintln(out.Writer, view)
		return err
	}, follow.WithLogger(logger))
	if err != nil {
		return out.Error(ExitFailure, "follow failed", err)
	}
	return nil
}
