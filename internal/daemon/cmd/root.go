// Package cmd implements the agentwaved command tree.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagRoot     string
	flagSettings string
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "agentwaved [port]",
	Short: "Serve agent console logs and run prompt jobs",
	Long: `agentwaved streams the agent console logs over SSE, WebSocket and polling,
accepts prompts, and runs the resulting agent tasks one after another.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

// Execute runs the daemon command tree.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentwaved:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.Flags().StringVar(&flagRoot, "root", "", "workspace directory (default: current directory)")
	rootCmd.Flags().StringVar(&flagSettings, "settings", "", "settings file (default: <root>/.agents/agentwave.yaml)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "write operational logs as JSON")

	rootCmd.AddCommand(daemonVersionCmd)
}

// parsePort reads the optional positional port. Anything that is not a
// positive port number leaves the configured port in place.
func parsePort(args []string, fallback int) int {
	if len(args) == 0 {
		return fallback
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 || port > 65535 {
		return fallback
	}
	return port
}
