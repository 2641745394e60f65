package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lccweb/agentwave/internal/models"
)

func logJSON(phase models.Phase, agent, text string) string {
	return fmt.Sprintf(`{"timestamp":"2026-03-14T09:26:53.589Z","agent":%q,"role":"agent","phase":%q,"text":%q}`, agent, phase, text)
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(Options{File: "latest.log"}, &programRef{})
	t.Cleanup(m.cancel)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return updated.(Model)
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelShowsStreamedLines(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(t, m, StreamOpenedMsg{})
	m, _ = send(t, m, LogLineMsg{Raw: logJSON(models.PhaseDone, "coordinator", "Wave finished.")})

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Wave finished.")
	assert.Contains(t, view, "09:26:53")
	assert.Contains(t, view, "Connected")
	assert.Contains(t, view, "latest.log")
}

func TestModelReopenReplacesLines(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(t, m, StreamOpenedMsg{})
	m, _ = send(t, m, LogLineMsg{Raw: logJSON(models.PhaseInfo, "coordinator", "old")})
	m, _ = send(t, m, StreamOpenedMsg{})
	assert.Equal(t, 0, m.viewer.Len())
}

func TestModelReconnectsAfterClose(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(t, m, StreamOpenedMsg{})

	m, cmd := send(t, m, StreamClosedMsg{Err: errors.New("connection refused")})
	assert.NotNil(t, cmd)
	assert.False(t, m.connected)
	assert.Contains(t, ansi.Strip(m.View()), "connection refused")

	_, cmd = send(t, m, StreamClosedMsg{Err: context.Canceled})
	assert.Nil(t, cmd)
}

func TestModelKeys(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(t, m, LogLineMsg{Raw: logJSON(models.PhaseInfo, "coordinator", "fine")})
	m, _ = send(t, m, LogLineMsg{Raw: logJSON(models.PhaseError, "test-runner", "Exit code: 1")})

	m, _ = send(t, m, keyMsg("e"))
	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Exit code: 1")
	assert.NotContains(t, view, "fine")

	m, _ = send(t, m, keyMsg("?"))
	assert.Contains(t, ansi.Strip(m.View()), "Keyboard Shortcuts")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, ansi.Strip(m.View()), "Keyboard Shortcuts")

	m, _ = send(t, m, keyMsg("c"))
	assert.Equal(t, 0, m.viewer.Len())

	_, cmd := send(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelJobBadge(t *testing.T) {
	m := newTestModel(t)
	assert.Contains(t, ansi.Strip(m.View()), "No jobs")

	job := models.NewJob("0123456789abcdef", "run all tests", []models.TaskSpec{
		{Agent: "test-runner"}, {Agent: "fixer-agent"},
	})
	job.Start()
	job.Tasks[0].Status = models.TaskStatusDone
	job.Tasks[1].Status = models.TaskStatusRunning

	m, _ = send(t, m, JobUpdateMsg{Job: job})
	view := ansi.Strip(m.View())
	assert.Contains(t, view, "job 01234567 running 1/2")
	assert.Contains(t, view, "fixer-agent")
}

func TestLogViewerTrimsAndFollows(t *testing.T) {
	l := NewLogViewer()
	l.limit = 50
	l.SetSize(80, 5)
	for i := 0; i < 60; i++ {
		l.Append(fmt.Sprintf("line %d", i))
	}
	assert.Equal(t, 50, l.Len())
	assert.True(t, l.Following())

	l.ScrollUp(3)
	assert.False(t, l.Following())
	l.GotoBottom()
	assert.True(t, l.Following())
	assert.Contains(t, l.View(), "line 59")
}

func TestFormatLine(t *testing.T) {
	line := &models.LogLine{
		Timestamp: "2026-03-14T09:26:53.589Z",
		Agent:     "user",
		Role:      models.RoleUser,
		Phase:     models.PhasePrompt,
		Text:      "first\nsecond " + strings.Repeat("x", 200),
	}
	out := formatLine(line, 60)
	plain := ansi.Strip(out)
	assert.True(t, strings.HasPrefix(plain, "09:26:53 PROMPT"), plain)
	assert.Contains(t, plain, "first ⏎ second")
	assert.LessOrEqual(t, ansi.StringWidth(out), 60)

	assert.Equal(t, "plain text", ansi.Strip(formatLine(&models.LogLine{Text: "plain text"}, 60)))
}
