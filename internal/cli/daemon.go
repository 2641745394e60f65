package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lccweb/agentwave/internal/config"
	"github.com/lccweb/agentwave/internal/models"
)

var errDaemonNotRunning = errors.New("daemon not running (start it with 'agentwave daemon start')")

// EnsureDaemon makes sure the daemon is running, starting it for workspace if necessary.
func EnsureDaemon(workspace string) (*models.DaemonInfo, error) {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return info, nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	return startDaemon(workspace)
}

// requireDaemon returns the running daemon's info without starting one.
func requireDaemon() (*models.DaemonInfo, error) {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		return nil, errDaemonNotRunning
	}
	return info, nil
}

// startDaemon starts agentwaved for workspace in the background.
func startDaemon(workspace string) (*models.DaemonInfo, error) {
	daemonPath, err := findDaemonBinary()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(daemonPath, "--root", workspace)
	cmd.Dir = workspace
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = cmd.Process.Release()

	// Wait for daemon to be ready (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		running, info, err := config.IsDaemonRunning()
		if err == nil && running {
			return info, nil
		}
	}

	return nil, fmt.Errorf("daemon failed to start within timeout")
}

// findDaemonBinary locates the agentwaved binary.
func findDaemonBinary() (string, error) {
	// Try PATH first
	path, err := exec.LookPath("agentwaved")
	if err == nil {
		return path, nil
	}

	// Try next to the current executable
	execPath, err := os.Executable()
	if err == nil {
		daemonPath := filepath.Join(filepath.Dir(execPath), "agentwaved")
		if _, err := os.Stat(daemonPath); err == nil {
			return daemonPath, nil
		}
	}

	// Try build directory
	if _, err := os.Stat("./build/agentwaved"); err == nil {
		return "./build/agentwaved", nil
	}

	return "", fmt.Errorf("agentwaved not found. Install or build it first")
}
