// Package main is the entry point for the agentwaved daemon.
package main

import (
	"os"

	"github.com/lccweb/agentwave/internal/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
