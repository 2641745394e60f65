package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lccweb/agentwave/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"config"},
	Short:   "Print the effective workspace settings",
	Long: `Print the settings agentwaved would use for the workspace: the settings
file over the defaults, with AGENTWAVE_* environment overrides applied.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func runSettings(cmd *cobra.Command, args []string) error {
	workspace, err := workspaceDir()
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(workspace, "")
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	out := cmd.OutOrStdout()
	path := config.SettingsFile(workspace)
	if !config.FileExists(path) {
		fmt.Fprintln(out, styleHint.Render("# no "+path+", showing defaults"))
	}
	_, err = out.Write(data)
	return err
}
