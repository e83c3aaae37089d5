// Package main provides tagctl, a command-line client for a tagstore data directory.
package main

import (
	"os"

	"github.com/inkwell/tagstore/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
