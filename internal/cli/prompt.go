package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/lccweb/agentwave/internal/control"
)

var flagPromptAgents []string

var promptCmd = &cobra.Command{
	Use:   "prompt <text>",
	Short: "Send a prompt to the agents",
	Long: `Send a prompt to the daemon. Simple questions, greetings and arithmetic
are answered directly; anything else is routed to agents and queued as a job.

The daemon is started for the workspace when it is not running.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringSliceVarP(&flagPromptAgents, "agent", "a", nil, "agents to route the prompt to (repeatable)")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	workspace, err := workspaceDir()
	if err != nil {
		return err
	}
	info, err := EnsureDaemon(workspace)
	if err != nil {
		return err
	}
	client, err := connectDaemon(info)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	reply, err := client.SubmitPrompt(ctx, &control.PromptRequest{
		Prompt: strings.Join(args, " "),
		Agents: flagPromptAgents,
	})
	if err != nil {
		if s, ok := status.FromError(err); ok {
			return fmt.Errorf("prompt rejected: %s", s.Message())
		}
		return fmt.Errorf("failed to submit prompt: %w", err)
	}

	printPromptReply(cmd, reply)
	return nil
}

func printPromptReply(cmd *cobra.Command, reply *control.PromptReply) {
	out := cmd.OutOrStdout()
	if reply.Outcome == control.OutcomeAnswered {
		fmt.Fprintln(out, reply.Answer)
		return
	}

	fmt.Fprintf(out, "%s %s\n", styleSuccess.Render("Queued job"), styleValue.Render(reply.JobID))
	for i, t := range reply.Tasks {
		fmt.Fprintf(out, "  %s %s %s\n",
			styleLabel.Render(fmt.Sprintf("%d.", i+1)),
			styleCommand.Render(t.Agent),
			styleHint.Render(t.Instruction))
	}
	fmt.Fprintln(out, styleHint.Render("Follow progress with 'agentwave watch'."))
}
