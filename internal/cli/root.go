// Package cli implements the agentwave CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagRoot string

var rootCmd = &cobra.Command{
	Use:   "agentwave",
	Short: "Send prompts to agentwaved and follow the agent console",
	Long: `agentwave talks to a running agentwaved daemon. It submits prompts,
lists jobs, and reads or follows the agent console logs.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace directory (default: current directory)")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
}

// workspaceDir returns the absolute workspace directory.
func workspaceDir() (string, error) {
	if flagRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(flagRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return abs, nil
}
