package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lccweb/agentwave/internal/models"
)

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite   = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim     = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed     = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow  = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorOrange  = lipgloss.AdaptiveColor{Light: "166", Dark: "208"}
	colorCyan    = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
	colorMagenta = lipgloss.AdaptiveColor{Light: "127", Dark: "171"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "235", Dark: "236"})
)

// Overlay styles.
var (
	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWhite).
			Padding(1, 2)

	overlayTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorWhite).
				MarginBottom(1)

	overlayDimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Key hint styles for status bar.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// Log line styles.
var (
	timeStyle  = lipgloss.NewStyle().Foreground(colorDim)
	agentStyle = lipgloss.NewStyle().Foreground(colorCyan)
	userStyle  = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	textStyle  = lipgloss.NewStyle().Foreground(colorWhite)
)

// phaseStyles colors the phase badge of a log line.
var phaseStyles = map[models.Phase]lipgloss.Style{
	models.PhasePrompt:     lipgloss.NewStyle().Foreground(colorOrange).Bold(true),
	models.PhaseInfo:       lipgloss.NewStyle().Foreground(colorDim),
	models.PhaseRun:        lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	models.PhaseDone:       lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
	models.PhaseError:      lipgloss.NewStyle().Foreground(colorRed).Bold(true),
	models.PhaseAnswer:     lipgloss.NewStyle().Foreground(colorGreen),
	models.PhaseProposal:   lipgloss.NewStyle().Foreground(colorMagenta),
	models.PhaseDiscussion: lipgloss.NewStyle().Foreground(colorYellow),
}

func phaseStyle(p models.Phase) lipgloss.Style {
	if s, ok := phaseStyles[p]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(colorWhite)
}

// Job status styles.
var jobStatusStyles = map[models.JobStatus]lipgloss.Style{
	models.JobStatusQueued:  lipgloss.NewStyle().Foreground(colorDim),
	models.JobStatusRunning: lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
	models.JobStatusDone:    lipgloss.NewStyle().Foreground(colorGreen),
	models.JobStatusFailed:  lipgloss.NewStyle().Foreground(colorRed).Bold(true),
}
