package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/config"
	"github.com/lccweb/agentwave/internal/daemon/agent"
	"github.com/lccweb/agentwave/internal/daemon/filebridge"
	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/daemon/queue"
	"github.com/lccweb/agentwave/internal/daemon/server"
	"github.com/lccweb/agentwave/internal/daemon/store"
	"github.com/lccweb/agentwave/internal/logging"
	"github.com/lccweb/agentwave/internal/models"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	workspace, err := resolveWorkspace(flagRoot)
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(workspace, flagSettings)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings.Server.Port = parsePort(args, settings.Server.Port)

	logger, err := logging.New(flagLogLevel, flagLogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running on port %d (PID %d)", info.Port, info.PID)
	}

	d, err := startDaemon(workspace, settings, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.server.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	d.stop(settings.Server.ShutdownTimeout)
	fmt.Println("Daemon stopped")
	return serveErr
}

func resolveWorkspace(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return abs, nil
}

// daemon holds every long-lived component so they can be stopped in order.
type daemon struct {
	logger    *zap.Logger
	server    *server.Server
	queue     *queue.Queue
	retention *logbook.Retention
	store     *store.Store
}

func startDaemon(workspace string, settings *models.Settings, logger *zap.Logger) (*daemon, error) {
	book, err := logbook.New(config.ResolvePath(workspace, settings.Logs.Dir), settings.Logs.RotateBytes, logger)
	if err != nil {
		return nil, err
	}

	var bridge *filebridge.Bridge
	if settings.Logs.FileBridge != "" {
		bridge = filebridge.New(config.ResolvePath(workspace, settings.Logs.FileBridge))
	}

	runner := agent.NewRunner(agent.RunnerOptions{
		Workspace:   workspace,
		Command:     settings.Runner.Command,
		Env:         settings.Runner.Env,
		PTY:         settings.Runner.PTY,
		TaskTimeout: settings.Runner.TaskTimeout,
		Book:        book,
		Bridge:      bridge,
		Logger:      logger,
	})
	direct := agent.NewDirectHandler(config.ResolvePath(workspace, settings.Runner.GeneratedDir), book)

	d := &daemon{logger: logger}

	opts := queue.Options{
		MaxPending:   settings.Queue.MaxPending,
		HistoryLimit: settings.Queue.HistoryLimit,
		Runner:       runner,
		Direct:       direct,
		Book:         book,
		Logger:       logger,
	}
	var history server.JobHistory
	var pruners []logbook.Pruner
	if settings.Store.Path != "" {
		st, err := store.Open(config.ResolvePath(workspace, settings.Store.Path))
		if err != nil {
			return nil, err
		}
		d.store = st
		opts.Recorder = st
		history = st
		pruners = append(pruners, st)
	}
	d.queue = queue.New(opts)

	d.retention, err = logbook.StartRetention(book, settings.Logs.RetentionDays, settings.Logs.RetentionSchedule, logger, pruners...)
	if err != nil {
		d.stop(settings.Server.ShutdownTimeout)
		return nil, err
	}

	d.server, err = server.New(server.Options{
		Host:         settings.Server.Host,
		Port:         settings.Server.Port,
		PingInterval: settings.Server.PingInterval,
		Workspace:    workspace,
		HistoryLimit: settings.Queue.HistoryLimit,
		Book:         book,
		Bridge:       bridge,
		Queue:        d.queue,
		History:      history,
		Logger:       logger,
	})
	if err != nil {
		d.stop(settings.Server.ShutdownTimeout)
		return nil, err
	}

	info := models.NewDaemonInfo(settings.Server.Host, d.server.Port(), os.Getpid(), workspace, book.Root())
	if err := config.SaveDaemonInfo(info); err != nil {
		d.stop(settings.Server.ShutdownTimeout)
		return nil, fmt.Errorf("failed to write daemon info: %w", err)
	}

	logger.Info("daemon started",
		zap.Int("port", d.server.Port()),
		zap.Int("pid", os.Getpid()),
		zap.String("workspace", workspace),
		zap.String("log_root", book.Root()))
	return d, nil
}

// stop shuts components down in reverse start order within timeout.
func (d *daemon) stop(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Warn("failed to stop server", zap.Error(err))
		}
		if err := config.RemoveDaemonInfo(); err != nil {
			d.logger.Warn("failed to remove daemon info", zap.Error(err))
		}
	}
	d.retention.Stop()
	if d.queue != nil {
		if err := d.queue.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn("failed to stop queue", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close store", zap.Error(err))
		}
	}
}
