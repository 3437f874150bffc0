// Command server runs the association admin API. See `server --help`.
package main

import (
	"fmt"
	"os"

	"association-admin-api/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
