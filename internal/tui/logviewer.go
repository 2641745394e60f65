package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/lccweb/agentwave/internal/logclient"
	"github.com/lccweb/agentwave/internal/models"
)

// defaultLimit bounds the lines kept in memory.
const defaultLimit = 5000

// LogViewer renders a scrolling, optionally filtered view of console log lines.
// Content is rebuilt lazily so a burst of appends costs one render.
type LogViewer struct {
	entries    []*models.LogLine
	rendered   []string
	limit      int
	dirty      bool
	viewport   viewport.Model
	width      int
	height     int
	follow     bool
	errorsOnly bool
}

// NewLogViewer creates a log viewer that follows new lines.
func NewLogViewer() *LogViewer {
	return &LogViewer{
		viewport: viewport.New(80, 20),
		limit:    defaultLimit,
		follow:   true,
	}
}

// SetSize updates dimensions and re-renders every line for the new width.
func (l *LogViewer) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.viewport.Width = width
	l.viewport.Height = height
	for i, e := range l.entries {
		l.rendered[i] = formatLine(e, width)
	}
	l.dirty = true
}

// Append adds a raw line from the stream.
func (l *LogViewer) Append(raw string) {
	e := logclient.Parse(raw)
	l.entries = append(l.entries, e)
	l.rendered = append(l.rendered, formatLine(e, l.width))
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append([]*models.LogLine(nil), l.entries[over:]...)
		l.rendered = append([]string(nil), l.rendered[over:]...)
	}
	l.dirty = true
}

// Reset drops every line.
func (l *LogViewer) Reset() {
	l.entries = nil
	l.rendered = nil
	l.dirty = true
}

// Len returns the number of buffered lines.
func (l *LogViewer) Len() int {
	return len(l.entries)
}

// Following reports whether the view sticks to the newest line.
func (l *LogViewer) Following() bool {
	return l.follow
}

// ErrorsOnly reports whether only ERROR lines are shown.
func (l *LogViewer) ErrorsOnly() bool {
	return l.errorsOnly
}

// ToggleFollow switches follow mode; enabling it jumps to the bottom.
func (l *LogViewer) ToggleFollow() {
	l.sync()
	l.follow = !l.follow
	if l.follow {
		l.viewport.GotoBottom()
	}
}

// ToggleErrors switches the ERROR-only filter.
func (l *LogViewer) ToggleErrors() {
	l.errorsOnly = !l.errorsOnly
	l.dirty = true
}

// ScrollUp scrolls up n lines and stops following.
func (l *LogViewer) ScrollUp(n int) {
	l.sync()
	l.follow = false
	l.viewport.LineUp(n)
}

// ScrollDown scrolls down n lines; reaching the bottom resumes following.
func (l *LogViewer) ScrollDown(n int) {
	l.sync()
	l.viewport.LineDown(n)
	l.follow = l.viewport.AtBottom()
}

// PageUp scrolls half a page up.
func (l *LogViewer) PageUp() {
	l.sync()
	l.follow = false
	l.viewport.HalfViewUp()
}

// PageDown scrolls half a page down.
func (l *LogViewer) PageDown() {
	l.sync()
	l.viewport.HalfViewDown()
	l.follow = l.viewport.AtBottom()
}

// GotoTop jumps to the oldest line.
func (l *LogViewer) GotoTop() {
	l.sync()
	l.follow = false
	l.viewport.GotoTop()
}

// GotoBottom jumps to the newest line and resumes following.
func (l *LogViewer) GotoBottom() {
	l.sync()
	l.follow = true
	l.viewport.GotoBottom()
}

// View renders the log viewer.
func (l *LogViewer) View() string {
	if l.sync() == 0 {
		msg := "Waiting for log lines..."
		if l.errorsOnly && len(l.entries) > 0 {
			msg = "No errors."
		}
		return lipgloss.NewStyle().Foreground(colorDim).Width(l.width).Height(l.height).
			Align(lipgloss.Center).Render("\n" + msg)
	}
	return l.viewport.View()
}

// sync rebuilds the viewport content when needed and returns the visible line count.
func (l *LogViewer) sync() int {
	lines := l.rendered
	if l.errorsOnly {
		lines = make([]string, 0, len(l.rendered))
		for i, e := range l.entries {
			if e.Phase == models.PhaseError {
				lines = append(lines, l.rendered[i])
			}
		}
	}
	if l.dirty {
		l.viewport.SetContent(strings.Join(lines, "\n"))
		if l.follow {
			l.viewport.GotoBottom()
		}
		l.dirty = false
	}
	return len(lines)
}

// formatLine renders "HH:MM:SS PHASE agent: text", cut to width.
func formatLine(e *models.LogLine, width int) string {
	if e.Phase == "" && e.Agent == "" {
		return ansi.Truncate(textStyle.Render(e.Text), width, "…")
	}

	clock := e.Timestamp
	if len(clock) >= 19 {
		clock = clock[11:19]
	}

	who := agentStyle.Render(e.Agent)
	if e.Role == models.RoleUser {
		who = userStyle.Render(e.Agent)
	}

	text := strings.ReplaceAll(e.Text, "\n", " ⏎ ")
	line := fmt.Sprintf("%s %s %s: %s",
		timeStyle.Render(clock),
		phaseStyle(e.Phase).Render(fmt.Sprintf("%-10s", e.Phase)),
		who,
		textStyle.Render(text),
	)
	if width <= 0 {
		return line
	}
	return ansi.Truncate(line, width, "…")
}
