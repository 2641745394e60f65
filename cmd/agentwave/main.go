// Package main is the entry point for the agentwave CLI.
package main

import (
	"os"

	"github.com/lccweb/agentwave/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
