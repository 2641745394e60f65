// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the per-user agentwave directory.
	GlobalDirName = ".agentwave"

	// AgentsDirName is the per-workspace directory holding logs, settings and history.
	AgentsDirName = ".agents"
)

// File names
const (
	DaemonFileName   = "daemon.yaml"
	SettingsFileName = "agentwave.yaml"
)

// GlobalDir returns the path to the global agentwave directory (~/.agentwave/).
// AGENTWAVE_HOME overrides it.
func GlobalDir() (string, error) {
	if dir := os.Getenv("AGENTWAVE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalDaemonFile returns the path to the daemon.yaml file.
func GlobalDaemonFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DaemonFileName), nil
}

// AgentsDir returns <workspace>/.agents.
func AgentsDir(workspace string) string {
	return filepath.Join(workspace, AgentsDirName)
}

// SettingsFile returns the path to a workspace's agentwave.yaml.
func SettingsFile(workspace string) string {
	return filepath.Join(AgentsDir(workspace), SettingsFileName)
}

// ResolvePath returns p unchanged when absolute, otherwise joined to the workspace.
func ResolvePath(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

// EnsureGlobalDir creates the global agentwave directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
