package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lccweb/agentwave/internal/logclient"
	"github.com/lccweb/agentwave/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Follow a console log live",
	Long: `Open the interactive log viewer on a console log (latest.log by default).
When stdout is not a terminal, lines are printed as they arrive instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	info, err := requireDaemon()
	if err != nil {
		return err
	}
	file := fileArg(args)
	logs := logsClient(info)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return streamPlain(ctx, logs, file, cmd.OutOrStdout())
	}

	opts := tui.Options{Logs: logs, File: file}
	// The job line is optional; the viewer still works without the control channel.
	if jobs, err := connectDaemon(info); err == nil {
		defer jobs.Close()
		opts.Jobs = jobs
	}
	return tui.Run(opts)
}

// streamPlain prints every streamed line until ctx is done or the daemon closes the stream.
func streamPlain(ctx context.Context, logs *logclient.Client, file string, out io.Writer) error {
	err := logs.Stream(ctx, file, func(raw string) error {
		fmt.Fprintln(out, formatLogLine(raw))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
