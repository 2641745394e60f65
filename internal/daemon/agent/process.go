package agent

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/creack/pty"
)

// DefaultStopGrace is how long Stop waits after SIGTERM before killing.
const DefaultStopGrace = 5 * time.Second

// partialFlushDelay is how long a trailing line without newline waits for the
// rest of it before being forwarded as is.
const partialFlushDelay = 200 * time.Millisecond

// Stream identifies where a line of child output came from.
type Stream int

// Output streams.
const (
	Stdout Stream = iota
	Stderr
)

// LinesFunc receives the non-empty lines of one output chunk.
type LinesFunc func(stream Stream, lines []string)

// ProcessOptions contains options for starting a task process.
type ProcessOptions struct {
	Name      string
	Cmd       *exec.Cmd
	PTY       bool
	Rows      int
	Cols      int
	StopGrace time.Duration
	OnLines   LinesFunc
}

// Process manages one running task, attached either to pipes or to a PTY.
type Process struct {
	name      string
	cmd       *exec.Cmd
	ptyFile   *os.File
	onLines   LinesFunc
	stopGrace time.Duration
	startedAt time.Time

	done        chan struct{}
	exitErr     error
	cleanupOnce sync.Once
	stopOnce    sync.Once

	cbMu sync.Mutex
}

// NewProcess starts the command and begins forwarding its output.
func NewProcess(opts ProcessOptions) (*Process, error) {
	if opts.Cmd == nil {
		return nil, errors.New("no command")
	}
	grace := opts.StopGrace
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	onLines := opts.OnLines
	if onLines == nil {
		onLines = func(Stream, []string) {}
	}

	p := &Process{
		name:      opts.Name,
		cmd:       opts.Cmd,
		onLines:   onLines,
		stopGrace: grace,
		done:      make(chan struct{}),
	}

	if opts.PTY {
		if err := p.startPTY(opts.Rows, opts.Cols); err != nil {
			return nil, err
		}
	} else {
		if err := p.startPipes(); err != nil {
			return nil, err
		}
	}
	p.startedAt = time.Now().UTC()
	return p, nil
}

func (p *Process) startPipes() error {
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.readLoop(stdout, Stdout, false)
	}()
	go func() {
		defer wg.Done()
		p.readLoop(stderr, Stderr, false)
	}()

	go func() {
		// Pipes must be drained before Wait closes them.
		wg.Wait()
		p.exitErr = p.cmd.Wait()
		close(p.done)
	}()
	return nil
}

func (p *Process) startPTY(rows, cols int) error {
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 120
	}

	ptmx, err := pty.StartWithSize(p.cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}
	p.ptyFile = ptmx

	go func() {
		p.readLoop(ptmx, Stdout, true)
		p.exitErr = p.cmd.Wait()
		p.Cleanup()
		close(p.done)
	}()
	return nil
}

// readLoop forwards output chunk by chunk. A trailing partial line is held back
// until its newline arrives, the output goes quiet for partialFlushDelay, or EOF.
func (p *Process) readLoop(r io.Reader, stream Stream, stripANSI bool) {
	chunks := make(chan string)
	go func() {
		defer close(chunks)
		buf := make([]byte, 32*1024)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunks <- string(buf[:n])
			}
			if err != nil {
				// A PTY master returns EIO once the child side closes.
				return
			}
		}
	}()

	flush := time.NewTimer(partialFlushDelay)
	flush.Stop()
	defer flush.Stop()

	var partial string
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				p.emit(stream, partial, stripANSI)
				return
			}
			text := partial + chunk
			partial = ""
			if idx := strings.LastIndexByte(text, '\n'); idx < len(text)-1 {
				partial = text[idx+1:]
				text = text[:idx+1]
			}
			p.emit(stream, text, stripANSI)
			if partial != "" {
				flush.Reset(partialFlushDelay)
			}
		case <-flush.C:
			p.emit(stream, partial, stripANSI)
			partial = ""
		}
	}
}

func (p *Process) emit(stream Stream, text string, stripANSI bool) {
	if stripANSI {
		text = ansi.Strip(text)
	}
	lines := splitLines(text)
	if len(lines) == 0 {
		return
	}
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.onLines(stream, lines)
}

// Stop terminates the process. Sends SIGTERM, waits for the grace period, then SIGKILL.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		if p.cmd.Process == nil {
			return
		}

		_ = p.cmd.Process.Signal(syscall.SIGTERM)

		select {
		case <-p.done:
			return
		case <-time.After(p.stopGrace):
		}

		_ = p.cmd.Process.Kill()
		<-p.done
	})
}

// Cleanup releases the PTY. Safe to call multiple times.
func (p *Process) Cleanup() {
	p.cleanupOnce.Do(func() {
		if p.ptyFile != nil {
			_ = p.ptyFile.Close()
		}
	})
}

// Done returns a channel that is closed when the process exits and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the process exit error (nil if exited cleanly).
func (p *Process) ExitErr() error {
	return p.exitErr
}

// ExitCode returns the exit status, or -1 when the process was killed by a signal.
func (p *Process) ExitCode() int {
	if p.exitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(p.exitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// StartedAt returns when the process was started.
func (p *Process) StartedAt() time.Time {
	return p.startedAt
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
