package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lccweb/agentwave/internal/config"
	"github.com/lccweb/agentwave/internal/models"
)

var (
	flagInitForce bool
	flagInitHost  string
	flagInitPort  int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default settings for the workspace",
	Long: `Write .agents/agentwave.yaml with the default settings.

Existing settings are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite existing settings")
	initCmd.Flags().StringVar(&flagInitHost, "host", "", "server host (default localhost)")
	initCmd.Flags().IntVar(&flagInitPort, "port", 0, "server port (default 8001)")
}

func runInit(cmd *cobra.Command, args []string) error {
	workspace, err := workspaceDir()
	if err != nil {
		return err
	}

	path := config.SettingsFile(workspace)
	if config.FileExists(path) && !flagInitForce {
		return fmt.Errorf("settings already exist at %s (use --force to overwrite)", path)
	}

	settings := models.NewSettings()
	if flagInitHost != "" {
		settings.Server.Host = flagInitHost
	}
	if flagInitPort != 0 {
		settings.Server.Port = flagInitPort
	}
	if err := config.Validate(settings); err != nil {
		return err
	}
	if err := config.SaveSettings(workspace, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", styleSuccess.Render("Wrote"), path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  - Run %s to start the daemon\n", styleCommand.Render("agentwave daemon start"))
	fmt.Fprintf(out, "  - Run %s to follow the console\n", styleCommand.Render("agentwave watch"))
	return nil
}
