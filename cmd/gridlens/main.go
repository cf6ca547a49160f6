// Package main provides the GridLens CLI.
package main

import (
	"os"

	"github.com/gridlens-labs/gridlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
