// Command tix inspects and appends to time-indexed JSON-lines logs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/timeindex/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
