// Package agent launches agent tasks as child processes and handles the
// in-process direct tasks.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/daemon/filebridge"
	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/models"
)

// BaseEnv is always added to a task's environment.
var BaseEnv = map[string]string{
	"TEST_RUNNER_ENABLE_CYPRESS": "false",
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Workspace   string
	Command     []string
	Env         map[string]string
	PTY         bool
	TaskTimeout time.Duration
	StopGrace   time.Duration
	Book        *logbook.Logbook
	Bridge      *filebridge.Bridge
	Logger      *zap.Logger
}

// Runner executes one agent task at a time and mirrors its output into the logbook.
type Runner struct {
	opts   RunnerOptions
	logger *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		opts:   opts,
		logger: logger.Named("runner"),
	}
}

// Run launches agent with instruction and blocks until it exits. Cancelling ctx
// stops the child (SIGTERM, then SIGKILL after the grace period). The returned
// error is non-nil only when the process could not be started.
func (r *Runner) Run(ctx context.Context, agent, instruction string) (int, error) {
	book := r.opts.Book
	book.Logf(models.AgentCoordinator, models.PhaseRun, "Launching %s: %s", agent, instruction)
	book.Logf(models.AgentCoordinator, models.PhaseInfo, "CMD: %s", r.commandLine(agent, instruction))

	defer book.Logf(models.AgentCoordinator, models.PhaseRun, "End of %s", agent)

	if len(r.opts.Command) == 0 {
		err := fmt.Errorf("no runner command configured")
		book.Logf(agent, models.PhaseError, "Spawn failed: %v", err)
		return -1, err
	}

	args := append(append([]string{}, r.opts.Command[1:]...), agent, instruction)
	cmd := exec.Command(r.opts.Command[0], args...)
	cmd.Dir = r.opts.Workspace
	cmd.Env = r.environ()

	proc, err := NewProcess(ProcessOptions{
		Name:      agent,
		Cmd:       cmd,
		PTY:       r.opts.PTY,
		StopGrace: r.opts.StopGrace,
		OnLines:   r.forward(agent),
	})
	if err != nil {
		r.logger.Warn("failed to spawn task", zap.String("agent", agent), zap.Error(err))
		book.Logf(agent, models.PhaseError, "Spawn failed: %v", err)
		return -1, err
	}
	r.logger.Debug("task started", zap.String("agent", agent), zap.Int("pid", cmd.Process.Pid))

	var timeout <-chan time.Time
	if r.opts.TaskTimeout > 0 {
		timer := time.NewTimer(r.opts.TaskTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-proc.Done():
	case <-ctx.Done():
		r.logger.Info("stopping task", zap.String("agent", agent), zap.Error(ctx.Err()))
		proc.Stop()
	case <-timeout:
		book.Logf(agent, models.PhaseError, "Timed out after %s", r.opts.TaskTimeout)
		proc.Stop()
	}
	<-proc.Done()

	code := proc.ExitCode()
	if code == 0 {
		book.Log(agent, models.PhaseDone, "Exit code: 0")
	} else {
		book.Logf(agent, models.PhaseError, "Exit code: %d", code)
	}
	r.logger.Debug("task finished", zap.String("agent", agent), zap.Int("exit_code", code),
		zap.Duration("elapsed", time.Since(proc.StartedAt())), zap.NamedError("exit_error", proc.ExitErr()))
	return code, nil
}

// forward logs stdout lines as INFO and stderr lines as ERROR, surfacing recent
// file writes after each stdout chunk.
func (r *Runner) forward(agent string) LinesFunc {
	return func(stream Stream, lines []string) {
		phase := models.PhaseInfo
		if stream == Stderr {
			phase = models.PhaseError
		}
		for _, line := range lines {
			r.opts.Book.Log(agent, phase, line)
		}
		if stream == Stdout {
			r.surfaceWrites()
		}
	}
}

func (r *Runner) surfaceWrites() {
	if r.opts.Bridge == nil {
		return
	}
	writes, err := r.opts.Bridge.RecentWrites(filebridge.RecentWindow)
	if err != nil {
		r.logger.Debug("failed to read file bridge", zap.Error(err))
		return
	}
	if len(writes) > 0 {
		r.opts.Book.Log(models.AgentCoordinator, models.PhaseInfo, "Modified: "+strings.Join(writes, " | "))
	}
}

func (r *Runner) commandLine(agent, instruction string) string {
	parts := append([]string{}, r.opts.Command...)
	parts = append(parts, agent, `"`+instruction+`"`)
	return strings.Join(parts, " ")
}

// environ returns the process environment with BaseEnv and the configured
// overrides applied, in that order.
func (r *Runner) environ() []string {
	env := os.Environ()
	for _, overrides := range []map[string]string{BaseEnv, r.opts.Env} {
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = setEnv(env, k, overrides[k])
		}
	}
	return env
}

// setEnv sets or replaces an environment variable in a slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
