package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StatView summarizes a log.
type StatView struct {
	Path       string     `json:"path"`
	Schema     string     `json:"schema"`
	Policy     string     `json:"policy"`
	CacheBound int        `json:"cache_bound"`
	Entries    int        `json:"entries"`
	Earliest   *EntryView `json:"earliest,omitempty"`
	Latest     *EntryView `json:"latest,omitempty"`
}

func (v StatView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path:        %s\n", v.Path)
	fmt.Fprintf(&b, "schema:      %s\n", v.Schema)
	fmt.Fprintf(&b, "policy:      %s\n", v.Policy)
	if v.CacheBound > 0 {
		fmt.Fprintf(&b, "cache bound: %d\n", v.CacheBound)
	} else {
		fmt.Fprintf(&b, "cache bound: unbounded\n")
	}
	fmt.Fprintf(&b, "entries:     %d", v.Entries)
	if v.Earliest != nil {
		fmt.Fprintf(&b, "\nearliest:    %s", v.Earliest)
	}
	if v.Latest != nil {
		fmt.Fprintf(&b, "\nlatest:      %s", v.Latest)
	}
	return b.String()
}

// NewStatCommand creates the stat command.
func NewStatCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stat [path]",
		Short:         "Summarize a log",
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

			view := StatView{
				Path:       s.Path(),
				Schema:     s.Schema().Name(),
				Policy:     s.Policy().String(),
				CacheBound: s.CacheBound(),
				Entries:    s.Len(),
			}
			if e, ok := s.Earliest(); ok {
				ev := viewOf(e)
				view.Earliest = &ev
			}
			if e, ok := s.Latest(); ok {
				ev := viewOf(e)
				view.Latest = &ev
			}
			return out.Success(view, view.String())
		},
	}
}
