package logbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lccweb/agentwave/internal/models"
)

func newTestLogbook(t *testing.T, rotate int64) *Logbook {
	t.Helper()
	b, err := New(t.TempDir(), rotate, zaptest.NewLogger(t))
	require.NoError(t, err)
	b.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}
	return b
}

func readLines(t *testing.T, path string) []models.LogLine {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []models.LogLine
	for _, l := range SplitLines(string(data)) {
		var line models.LogLine
		require.NoError(t, json.Unmarshal([]byte(l), &line))
		out = append(out, line)
	}
	return out
}

func TestAppendWritesDailyAndLatest(t *testing.T) {
	b := newTestLogbook(t, 0)

	b.Log(models.AgentCoordinator, models.PhaseInfo, "hello")
	b.LogAs(models.AgentUser, models.RoleUser, models.PhasePrompt, "make it dark")

	daily := filepath.Join(b.Root(), "daily-2026-03-14.log")
	assert.Equal(t, daily, b.DailyFile(b.now()))

	for _, path := range []string{daily, b.LatestFile()} {
		lines := readLines(t, path)
		require.Len(t, lines, 2)
		assert.Equal(t, models.AgentCoordinator, lines[0].Agent)
		assert.Equal(t, models.RoleAgent, lines[0].Role)
		assert.Equal(t, models.PhaseInfo, lines[0].Phase)
		assert.Equal(t, "hello", lines[0].Text)
		assert.Equal(t, models.RoleUser, lines[1].Role)
		assert.Equal(t, models.PhasePrompt, lines[1].Phase)
	}
}

func TestAppendRotatesLatest(t *testing.T) {
	b := newTestLogbook(t, 200)

	for i := 0; i < 5; i++ {
		b.Log(models.AgentCoordinator, models.PhaseInfo, strings.Repeat("x", 60))
	}

	backup := filepath.Join(b.Root(), "latest-backup-2026-03-14T09-26-53-589Z.log")
	_, err := os.Stat(backup)
	require.NoError(t, err, "expected rotated backup")

	// Daily log keeps every line.
	assert.Len(t, readLines(t, b.DailyFile(b.now())), 5)

	info, err := os.Stat(b.LatestFile())
	if err == nil {
		assert.LessOrEqual(t, info.Size(), int64(200))
	}
}

func TestResolve(t *testing.T) {
	b := newTestLogbook(t, 0)
	root := b.Root()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", filepath.Join(root, "latest.log")},
		{"plain", "latest.log", filepath.Join(root, "latest.log")},
		{"leading slash", "/daily-2026-03-14.log", filepath.Join(root, "daily-2026-03-14.log")},
		{"nested", "runs/a.log", filepath.Join(root, "runs", "a.log")},
		{"backslashes", `runs\b.log`, filepath.Join(root, "runs", "b.log")},
		{"escape", "../../etc/passwd", filepath.Join(root, "passwd")},
		{"escape backslash", `..\..\secret.log`, filepath.Join(root, "secret.log")},
		{"dotdot only", "..", filepath.Join(root, "latest.log")},
		{"root itself", ".", filepath.Join(root, "latest.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Resolve(tt.in))
		})
	}
}

func TestResolveNeverEscapesRoot(t *testing.T) {
	b := newTestLogbook(t, 0)
	root := b.Root()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	segment := gen.OneConstOf("..", ".", "", "a", "logs", "x.log", `..\..`, "/", "~")
	properties.Property("resolved path stays inside root", prop.ForAll(
		func(parts []string) bool {
			got := b.Resolve(strings.Join(parts, "/"))
			rel, err := filepath.Rel(root, got)
			return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
		},
		gen.SliceOf(segment),
	))

	properties.TestingRun(t)
}

func TestListSortsByMtime(t *testing.T) {
	b := newTestLogbook(t, 0)
	root := b.Root()

	base := time.Now().Add(-time.Hour)
	files := map[string]time.Duration{
		"old.log":     0,
		"newer.JSONL": 10 * time.Minute,
		"newest.log":  20 * time.Minute,
		"notes.txt":   30 * time.Minute,
	}
	for name, offset := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
		require.NoError(t, os.Chtimes(path, base.Add(offset), base.Add(offset)))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.log"), 0o755))

	names, err := b.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"newest.log", "newer.JSONL", "old.log"}, names)
}

func TestTail(t *testing.T) {
	b := newTestLogbook(t, 0)
	path := filepath.Join(b.Root(), "t.log")
	require.NoError(t, os.WriteFile(path, []byte("one\r\n\ntwo\nthree"), 0o644))

	lines, size, err := b.Tail("t.log", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, lines)
	assert.Equal(t, int64(15), size)

	lines, _, err = b.Tail("t.log", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, lines)

	lines, size, err = b.Tail("t.log", 1000)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, int64(15), size)

	lines, _, err = b.Tail("t.log", -5)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestTailCreatesMissingFile(t *testing.T) {
	b := newTestLogbook(t, 0)

	lines, size, err := b.Tail("fresh/new.log", 0)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Zero(t, size)
	assert.FileExists(t, filepath.Join(b.Root(), "fresh", "new.log"))
}

func TestClearAndIngest(t *testing.T) {
	b := newTestLogbook(t, 0)
	b.Log(models.AgentCoordinator, models.PhaseInfo, "before")

	require.NoError(t, b.Clear(""))
	info, err := os.Stat(b.LatestFile())
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	line := models.NewLogLine(models.AgentBrowserConsole, models.RoleConsole, models.PhaseError, "boom")
	line.Meta = json.RawMessage(`{"url":"/index.html"}`)
	require.NoError(t, b.Ingest("console.jsonl", line))

	got := readLines(t, filepath.Join(b.Root(), "console.jsonl"))
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Text)
	assert.JSONEq(t, `{"url":"/index.html"}`, string(got[0].Meta))

	// Ingest targets only the named file.
	info, err = os.Stat(b.LatestFile())
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestPrune(t *testing.T) {
	b := newTestLogbook(t, 0)
	root := b.Root()

	write := func(name string, mtime time.Time) {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	now := b.now()
	write("daily-2026-03-14.log", now)
	write("daily-2026-03-01.log", now)
	write("daily-2026-01-01.log", now)
	write("latest-backup-old.log", now.Add(-30*24*time.Hour))
	write("latest-backup-new.log", now.Add(-time.Hour))
	write("latest.log", now.Add(-90*24*time.Hour))
	write("custom.log", now.Add(-90*24*time.Hour))

	n, err := b.Prune(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err := b.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"daily-2026-03-14.log",
		"daily-2026-03-01.log",
		"latest-backup-new.log",
		"latest.log",
		"custom.log",
	}, names)
}

func TestStartRetention(t *testing.T) {
	b := newTestLogbook(t, 0)

	r, err := StartRetention(b, 0, "", nil)
	require.NoError(t, err)
	assert.Nil(t, r)
	r.Stop()

	_, err = StartRetention(b, 3, "not a schedule", nil)
	assert.Error(t, err)

	r, err = StartRetention(b, 3, "@hourly", nil)
	require.NoError(t, err)
	require.NotNil(t, r)
	r.Stop()
}
