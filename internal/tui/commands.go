package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lccweb/agentwave/internal/models"
)

// reconnectDelay is the wait before reopening a closed stream.
const reconnectDelay = 2 * time.Second

func (m Model) streamLogsCmd() tea.Cmd {
	ctx, client, file, ref := m.ctx, m.opts.Logs, m.opts.File, m.program
	return func() tea.Msg {
		err := client.Follow(ctx, file,
			func() { ref.Send(StreamOpenedMsg{}) },
			func(line string) error {
				ref.Send(LogLineMsg{Raw: line})
				return nil
			},
		)
		return StreamClosedMsg{Err: err}
	}
}

func (m Model) watchJobsCmd() tea.Cmd {
	if m.opts.Jobs == nil {
		return nil
	}
	ctx, client, ref := m.ctx, m.opts.Jobs, m.program
	return func() tea.Msg {
		// Errors end the job line only; the log stream keeps running.
		_ = client.WatchJobs(ctx, func(job *models.Job) error {
			ref.Send(JobUpdateMsg{Job: job})
			return nil
		})
		return nil
	}
}

func reconnectCmd() tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
