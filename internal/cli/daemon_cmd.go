package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lccweb/agentwave/internal/config"
	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/models"
)

const rpcTimeout = 3 * time.Second

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the agentwave daemon",
	Long:  `Manage the agentwaved process.`,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon for the workspace",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running && info != nil {
		fmt.Fprintf(out, "Daemon is already running (PID %d, port %d).\n", info.PID, info.Port)
		return nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	workspace, err := workspaceDir()
	if err != nil {
		return err
	}

	fmt.Fprint(out, "Starting daemon...")
	info, err = startDaemon(workspace)
	if err != nil {
		fmt.Fprintln(out)
		return err
	}
	fmt.Fprintf(out, " started (PID %d, port %d).\n", info.PID, info.Port)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running || info == nil {
		fmt.Fprintln(out, "Daemon is not running.")
		return nil
	}

	status, err := fetchStatus(info)
	if err != nil {
		fmt.Fprintln(out, styleWarning.Render("Daemon process is alive but not answering: "+err.Error()))
		status = statusFromInfo(info)
	}
	printStatus(out, status)
	return nil
}

func fetchStatus(info *models.DaemonInfo) (*control.DaemonStatus, error) {
	client, err := connectDaemon(info)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	return client.GetStatus(ctx)
}

func statusFromInfo(info *models.DaemonInfo) *control.DaemonStatus {
	return &control.DaemonStatus{
		Host:      info.Host,
		Port:      int32(info.Port),
		Pid:       int32(info.PID),
		Workspace: info.Workspace,
		LogRoot:   info.LogRoot,
	}
}

func printStatus(out io.Writer, status *control.DaemonStatus) {
	row := func(label, value string) {
		fmt.Fprintf(out, "  %s %s\n", styleLabel.Render(fmt.Sprintf("%-12s", label+":")), styleValue.Render(value))
	}

	fmt.Fprintln(out, styleSuccess.Render("Daemon is running."))
	if status.Version != "" {
		row("Version", status.Version)
	}
	row("Host", status.Host)
	row("Port", fmt.Sprint(status.Port))
	row("PID", fmt.Sprint(status.Pid))
	if status.StartedAt != nil {
		row("Uptime", time.Since(status.StartedAt.AsTime()).Truncate(time.Second).String())
	}
	row("Workspace", status.Workspace)
	row("Log root", status.LogRoot)
	row("Pending", fmt.Sprint(status.PendingJobs))
	if status.RunningJob != "" {
		row("Running job", status.RunningJob)
	}
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running || info == nil {
		fmt.Fprintln(out, "Daemon is not running.")
		return nil
	}

	if err := requestShutdown(info); err != nil {
		// Fall back to SIGTERM when the control channel is unavailable
		process, err := os.FindProcess(info.PID)
		if err != nil {
			return fmt.Errorf("failed to find daemon process: %w", err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("failed to send stop signal: %w", err)
		}
	}

	// Poll for shutdown (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		stillRunning, _, err := config.IsDaemonRunning()
		if err == nil && !stillRunning {
			fmt.Fprintln(out, "Daemon stopped.")
			return nil
		}
	}

	return fmt.Errorf("daemon did not stop within timeout")
}

func requestShutdown(info *models.DaemonInfo) error {
	client, err := connectDaemon(info)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	return client.Shutdown(ctx)
}
