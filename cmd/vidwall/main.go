// Package main is the entry point for the vidwall application.
package main

import (
	"os"

	"github.com/jmylchreest/vidwall/cmd/vidwall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
