// Command flatkv reads and writes flat key=value namespaces.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/flatkv/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, "flatkv:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
