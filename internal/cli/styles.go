package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lccweb/agentwave/internal/models"
)

// Adaptive colors matching the TUI palette.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorOrange = lipgloss.AdaptiveColor{Light: "166", Dark: "208"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Semantic styles for CLI output.
var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleVersion = lipgloss.NewStyle().Foreground(colorGreen)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleHint    = lipgloss.NewStyle().Foreground(colorDim)
	styleCommand = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
)

// Job status badge styles.
var jobBadges = map[models.JobStatus]lipgloss.Style{
	models.JobStatusQueued:  lipgloss.NewStyle().Foreground(colorDim),
	models.JobStatusRunning: lipgloss.NewStyle().Bold(true).Foreground(colorCyan),
	models.JobStatusDone:    lipgloss.NewStyle().Foreground(colorGreen),
	models.JobStatusFailed:  lipgloss.NewStyle().Bold(true).Foreground(colorRed),
}

// Phase styles for plain log output.
var phaseStyles = map[models.Phase]lipgloss.Style{
	models.PhasePrompt:     lipgloss.NewStyle().Foreground(colorCyan),
	models.PhaseRun:        lipgloss.NewStyle().Foreground(colorOrange),
	models.PhaseDone:       lipgloss.NewStyle().Foreground(colorGreen),
	models.PhaseError:      lipgloss.NewStyle().Bold(true).Foreground(colorRed),
	models.PhaseAnswer:     lipgloss.NewStyle().Foreground(colorGreen),
	models.PhaseProposal:   lipgloss.NewStyle().Foreground(colorYellow),
	models.PhaseDiscussion: lipgloss.NewStyle().Foreground(colorYellow),
}

func jobBadge(status models.JobStatus) string {
	if s, ok := jobBadges[status]; ok {
		return s.Render(string(status))
	}
	return string(status)
}
