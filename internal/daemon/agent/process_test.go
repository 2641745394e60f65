package agent

import (
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) record(_ Stream, lines []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, lines...)
}

func (l *lineRecorder) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func TestProcessFlushesQuietPartialLine(t *testing.T) {
	rec := &lineRecorder{}
	proc, err := NewProcess(ProcessOptions{
		Cmd:       exec.Command("sh", "-c", "printf 'loading 50%%'; exec sleep 5"),
		StopGrace: 200 * time.Millisecond,
		OnLines:   rec.record,
	})
	require.NoError(t, err)
	defer proc.Stop()

	require.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 1 && got[0] == "loading 50%"
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case <-proc.Done():
		t.Fatal("process exited before the partial line was forwarded")
	default:
	}
}

func TestProcessJoinsLineSplitAcrossWrites(t *testing.T) {
	rec := &lineRecorder{}
	proc, err := NewProcess(ProcessOptions{
		Cmd:     exec.Command("sh", "-c", "printf 'hel'; printf 'lo\\n   \\nbye\\n'"),
		OnLines: rec.record,
	})
	require.NoError(t, err)
	<-proc.Done()

	assert.Equal(t, []string{"hello", "   ", "bye"}, rec.snapshot())
	assert.NoError(t, proc.ExitErr())
	assert.Equal(t, 0, proc.ExitCode())
}

func TestProcessExitError(t *testing.T) {
	proc, err := NewProcess(ProcessOptions{Cmd: exec.Command("sh", "-c", "exit 4")})
	require.NoError(t, err)
	<-proc.Done()

	var exitErr *exec.ExitError
	assert.True(t, errors.As(proc.ExitErr(), &exitErr))
	assert.Equal(t, 4, proc.ExitCode())
}
