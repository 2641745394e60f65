package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lccweb/agentwave/internal/logclient"
	"github.com/lccweb/agentwave/internal/models"
)

const defaultLogFile = "latest.log"

// pollInterval is how often `logs tail --follow` asks for new lines.
var pollInterval = time.Second

var (
	flagTailFollow bool
	flagTailLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read agent console logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List console log files, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLogsList,
}

var logsTailCmd = &cobra.Command{
	Use:   "tail [file]",
	Short: "Print the end of a console log",
	Long: `Print the last lines of a console log (latest.log by default).
With --follow, keep polling for new lines until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogsTail,
}

func init() {
	logsTailCmd.Flags().BoolVarP(&flagTailFollow, "follow", "f", false, "keep printing new lines")
	logsTailCmd.Flags().IntVarP(&flagTailLines, "lines", "n", 50, "number of lines to print first (0 for all)")

	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsTailCmd)
}

func runLogsList(cmd *cobra.Command, args []string) error {
	info, err := requireDaemon()
	if err != nil {
		return err
	}
	files, err := logsClient(info).List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No log files.")
		return nil
	}
	for _, f := range files {
		fmt.Fprintln(out, f)
	}
	return nil
}

func runLogsTail(cmd *cobra.Command, args []string) error {
	info, err := requireDaemon()
	if err != nil {
		return err
	}
	file := fileArg(args)
	client := logsClient(info)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines, size, err := client.Tail(ctx, file, 0)
	if err != nil {
		return err
	}
	if flagTailLines > 0 && len(lines) > flagTailLines {
		lines = lines[len(lines)-flagTailLines:]
	}
	for _, l := range lines {
		fmt.Fprintln(out, formatLogLine(l))
	}

	if !flagTailFollow {
		return nil
	}
	return followTail(ctx, client, file, size, out)
}

// followTail polls for lines written after offset until ctx is done.
// A file that shrank (cleared or rotated) is read again from the start.
func followTail(ctx context.Context, client *logclient.Client, file string, offset int64, out io.Writer) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		lines, size, err := client.Tail(ctx, file, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if size < offset {
			offset = 0
			continue
		}
		for _, l := range lines {
			fmt.Fprintln(out, formatLogLine(l))
		}
		offset = size
	}
}

func fileArg(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return defaultLogFile
	}
	return args[0]
}

// formatLogLine renders a raw JSON log line as "HH:MM:SS PHASE agent: text".
// Lines that are not JSON are printed unchanged.
func formatLogLine(raw string) string {
	e := logclient.Parse(raw)
	if e.Phase == "" && e.Agent == "" {
		return e.Text
	}

	clock := e.Timestamp
	if t, err := time.Parse(models.TimestampFormat, e.Timestamp); err == nil {
		clock = t.Local().Format("15:04:05")
	}

	phase := fmt.Sprintf("%-10s", e.Phase)
	if s, ok := phaseStyles[e.Phase]; ok {
		phase = s.Render(phase)
	}
	return fmt.Sprintf("%s %s %s: %s",
		styleLabel.Render(clock),
		phase,
		styleCommand.Render(e.Agent),
		strings.ReplaceAll(e.Text, "\n", "\n    "),
	)
}
