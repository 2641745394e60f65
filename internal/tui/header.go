package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lccweb/agentwave/internal/models"
)

func renderHeader(file string, job *models.Job, width int) string {
	name := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Render("agentwave")
	left := fmt.Sprintf(" %s  %s", name, lipgloss.NewStyle().Foreground(colorWhite).Render(file))

	right := renderJobBadge(job) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderJobBadge(job *models.Job) string {
	if job == nil {
		return lipgloss.NewStyle().Foreground(colorDim).Render("No jobs")
	}

	done := 0
	current := ""
	for _, t := range job.Tasks {
		switch t.Status {
		case models.TaskStatusDone, models.TaskStatusFailed:
			done++
		case models.TaskStatusRunning:
			current = t.Agent
		}
	}

	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}
	style, ok := jobStatusStyles[job.Status]
	if !ok {
		style = lipgloss.NewStyle()
	}

	badge := fmt.Sprintf("job %s %s %d/%d", id, style.Render(string(job.Status)), done, len(job.Tasks))
	if current != "" {
		badge += " · " + agentStyle.Render(current)
	}
	return badge
}
