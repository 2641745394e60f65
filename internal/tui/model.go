package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lccweb/agentwave/internal/models"
)

var errStreamClosed = errors.New("stream closed by daemon")

// Model is the root Bubbletea model for the log viewer.
type Model struct {
	opts    Options
	program *programRef

	ctx    context.Context
	cancel context.CancelFunc

	viewer        *LogViewer
	job           *models.Job
	connected     bool
	err           error
	activeOverlay int
	width         int
	height        int
}

// NewModel creates the initial TUI model.
func NewModel(opts Options, program *programRef) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		opts:    opts,
		program: program,
		ctx:     ctx,
		cancel:  cancel,
		viewer:  NewLogViewer(),
	}
}

// Init starts the log stream and, when available, the job watch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.streamLogsCmd(), m.watchJobsCmd())
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// ── Window resize ──────────────────────────────────────────────
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateDimensions()
		return m, nil

	// ── Key events ─────────────────────────────────────────────────
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	// ── Stream events ──────────────────────────────────────────────
	case StreamOpenedMsg:
		// The daemon replays the whole file on every connect.
		m.viewer.Reset()
		m.connected = true
		m.err = nil
		return m, nil

	case LogLineMsg:
		m.viewer.Append(msg.Raw)
		return m, nil

	case StreamClosedMsg:
		m.connected = false
		if isCancelled(msg.Err) {
			return m, nil
		}
		m.err = msg.Err
		if m.err == nil {
			m.err = errStreamClosed
		}
		return m, reconnectCmd()

	case reconnectMsg:
		if m.ctx.Err() != nil {
			return m, nil
		}
		return m, m.streamLogsCmd()

	case JobUpdateMsg:
		m.job = msg.Job
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.activeOverlay != overlayNone {
		if key.Matches(msg, viewerKeys.Close) || key.Matches(msg, viewerKeys.Help) {
			m.activeOverlay = overlayNone
		}
		return nil
	}

	switch {
	case key.Matches(msg, viewerKeys.Quit):
		m.cancel()
		return tea.Quit
	case key.Matches(msg, viewerKeys.Help):
		m.activeOverlay = overlayHelp
	case key.Matches(msg, viewerKeys.Up):
		m.viewer.ScrollUp(1)
	case key.Matches(msg, viewerKeys.Down):
		m.viewer.ScrollDown(1)
	case key.Matches(msg, viewerKeys.PageUp):
		m.viewer.PageUp()
	case key.Matches(msg, viewerKeys.PageDown):
		m.viewer.PageDown()
	case key.Matches(msg, viewerKeys.Top):
		m.viewer.GotoTop()
	case key.Matches(msg, viewerKeys.Bottom):
		m.viewer.GotoBottom()
	case key.Matches(msg, viewerKeys.Follow):
		m.viewer.ToggleFollow()
	case key.Matches(msg, viewerKeys.Errors):
		m.viewer.ToggleErrors()
	case key.Matches(msg, viewerKeys.Clear):
		m.viewer.Reset()
	}
	return nil
}

// updateDimensions gives the viewer everything between header and status bar.
func (m *Model) updateDimensions() {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	m.viewer.SetSize(m.width, h)
}

// View renders the header, the log lines and the status bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Connecting to daemon..."
	}

	header := renderHeader(m.opts.File, m.job, m.width)
	body := lipgloss.NewStyle().Height(m.height - 2).MaxHeight(m.height - 2).Render(m.viewer.View())
	statusBar := renderStatusBar(&m, m.width)

	view := lipgloss.JoinVertical(lipgloss.Left, header, body, statusBar)

	if m.activeOverlay == overlayHelp {
		view = renderOverlay(view, renderHelp(m.width), m.width, m.height)
	}
	return view
}
