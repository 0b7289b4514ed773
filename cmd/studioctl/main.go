// Command studioctl submits generations to the studio API and follows them
// from the terminal.
package main

import (
	"fmt"
	"os"

	"studio/cmd/studioctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
