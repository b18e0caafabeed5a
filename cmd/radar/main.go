// Package main is the entry point for the radar binary.
package main

import (
	"os"

	"github.com/pandeptwidyaop/release-radar/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
