package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(m *Model, width int) string {
	if m.err != nil && !m.connected {
		return renderErrorBar("Disconnected: "+m.err.Error()+" (retrying)", width)
	}

	left := " " + getKeyHints(m)

	var flags []string
	if m.viewer.Following() {
		flags = append(flags, lipgloss.NewStyle().Foreground(colorCyan).Render("follow"))
	}
	if m.viewer.ErrorsOnly() {
		flags = append(flags, lipgloss.NewStyle().Foreground(colorRed).Render("errors"))
	}

	var conn string
	if m.connected {
		conn = lipgloss.NewStyle().Foreground(colorGreen).Render("Connected")
	} else {
		conn = lipgloss.NewStyle().Foreground(colorYellow).Bold(true).Render("⚠ Disconnected")
	}
	right := strings.Join(append(flags, conn), "  ") + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func getKeyHints(m *Model) string {
	if m.activeOverlay != overlayNone {
		return keyHint("Esc", "close")
	}
	return keyHint("q", "quit") + "  " + keyHint("?", "help") + "  " +
		keyHint("f", "follow") + "  " + keyHint("e", "errors") + "  " + keyHint("c", "clear")
}

func keyHint(k, desc string) string {
	if k == "" {
		return hintStyle.Render(desc)
	}
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}

func renderErrorBar(msg string, width int) string {
	return statusBarStyle.
		Background(colorRed).
		Width(width).
		Render(" " + msg)
}
