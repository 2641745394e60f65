package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/lccweb/agentwave/internal/models"
)

var flagJobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List active and recent jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&flagJobsLimit, "limit", "n", 10, "number of finished jobs to show")
}

func runJobs(cmd *cobra.Command, args []string) error {
	info, err := requireDaemon()
	if err != nil {
		return err
	}
	client, err := connectDaemon(info)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
	defer cancel()
	list, err := client.ListJobs(ctx, flagJobsLimit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(list.Active) == 0 && len(list.Recent) == 0 {
		fmt.Fprintln(out, "No jobs.")
		return nil
	}
	printJobs(out, "Active", list.Active)
	printJobs(out, "Recent", list.Recent)
	return nil
}

func printJobs(out io.Writer, title string, jobs []*models.Job) {
	if len(jobs) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", title, len(jobs))
	for _, j := range jobs {
		fmt.Fprintln(out, "  "+formatJob(j))
	}
}

// formatJob renders a one-line job summary.
func formatJob(j *models.Job) string {
	done := 0
	for _, t := range j.Tasks {
		if t.Status == models.TaskStatusDone {
			done++
		}
	}
	id := j.ID
	if len(id) > 8 {
		id = id[:8]
	}
	when := j.EnqueuedAt.Local().Format("01-02 15:04")
	return fmt.Sprintf("%s  %s  %s  %d/%d  %s  %s",
		styleValue.Render(id),
		styleLabel.Render(when),
		jobBadge(j.Status),
		done, len(j.Tasks),
		styleCommand.Render(strings.Join(j.AgentNames(), ",")),
		styleHint.Render(ansi.Truncate(j.Prompt, 60, "…")),
	)
}
