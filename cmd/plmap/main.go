// Package main provides the CLI for plmap.
package main

import (
	"os"

	"github.com/leapstack-labs/plmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
