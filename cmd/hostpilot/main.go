// Command hostpilot runs natural-language commands against the local computer.
package main

import (
	"fmt"
	"os"

	"hostpilot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
