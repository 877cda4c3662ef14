// Package main provides the entry point for the astindex CLI.
package main

import (
	"os"

	"github.com/weftcode/astindex/cmd/astindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
