// Command tabengine runs and operates the table order engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tabengine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
