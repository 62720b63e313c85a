package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [path]",
		Short: "Check that a log loads cleanly",
		Long: `Load the whole log, decoding and validating every line and checking that
timestamps never decrease.

Exit codes:
  0 - Log is valid
  1 - Log is malformed or out of order (the error names the line)
  2 - Command error`,
		Args:          pathArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)

			s, _, err := openStore(cmd, opts, args, 0)
			if err != nil {
				code := ExitCommandError
				if timeindex.KindName(err) != "" && !timeindex.IsNoData(err) {
					code = ExitFailure
				}
				return out.Error(code, "verification failed", err)
			}
			defer s.Close()

			data := map[string]any{"path": s.Path(), "entries": s.Len(), "valid": true}
			return out.Success(data, fmt.Sprintf("ok: %s (%d entries)", s.Path(), s.Len()))
		},
	}
}
