// Package logbook appends JSON log lines to the console log directory and serves
// the file operations behind the /logs endpoints.
package logbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/models"
)

// File names within the log root.
const (
	LatestFileName   = "latest.log"
	dailyPrefix      = "daily-"
	backupPrefix     = "latest-backup-"
	dailyDateLayout  = "2006-01-02"
	DefaultRotateAt  = 1024 * 1024
	maxIngestLineLen = 1 << 20
)

// Logbook owns the console log directory.
type Logbook struct {
	mu          sync.Mutex
	root        string
	rotateBytes int64
	logger      *zap.Logger
	now         func() time.Time
}

// New creates the log root if needed and returns a Logbook writing into it.
func New(root string, rotateBytes int64, logger *zap.Logger) (*Logbook, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rotateBytes <= 0 {
		rotateBytes = DefaultRotateAt
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log root: %w", err)
	}

	return &Logbook{
		root:        abs,
		rotateBytes: rotateBytes,
		logger:      logger.Named("logbook"),
		now:         time.Now,
	}, nil
}

// Root returns the absolute log directory.
func (b *Logbook) Root() string {
	return b.root
}

// LatestFile returns the path of latest.log.
func (b *Logbook) LatestFile() string {
	return filepath.Join(b.root, LatestFileName)
}

// DailyFile returns the daily log path for t's UTC date.
func (b *Logbook) DailyFile(t time.Time) string {
	return filepath.Join(b.root, dailyPrefix+t.UTC().Format(dailyDateLayout)+".log")
}

// Log appends a line with role "agent".
func (b *Logbook) Log(agent string, phase models.Phase, text string) {
	b.Append(models.NewLogLine(agent, models.RoleAgent, phase, text))
}

// Logf is Log with formatting.
func (b *Logbook) Logf(agent string, phase models.Phase, format string, args ...interface{}) {
	b.Log(agent, phase, fmt.Sprintf(format, args...))
}

// LogAs appends a line with an explicit role.
func (b *Logbook) LogAs(agent, role string, phase models.Phase, text string) {
	b.Append(models.NewLogLine(agent, role, phase, text))
}

// Append writes line to today's daily log and to latest.log, then rotates
// latest.log once it grows past the threshold. Write failures are logged, never returned.
func (b *Logbook) Append(line *models.LogLine) {
	data, err := json.Marshal(line)
	if err != nil {
		b.logger.Error("failed to encode log line", zap.Error(err))
		return
	}
	data = append(data, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := appendFile(b.DailyFile(b.now()), data); err != nil {
		b.logger.Warn("failed to append daily log", zap.Error(err))
	}
	latest := b.LatestFile()
	if err := appendFile(latest, data); err != nil {
		b.logger.Warn("failed to append latest log", zap.Error(err))
	}
	b.rotateLocked(latest)
}

// rotateLocked renames latest.log to a timestamped backup when it is over the threshold.
func (b *Logbook) rotateLocked(latest string) {
	info, err := os.Stat(latest)
	if err != nil || info.Size() <= b.rotateBytes {
		return
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(models.FormatTimestamp(b.now()))
	backup := filepath.Join(b.root, backupPrefix+stamp+".log")
	if err := os.Rename(latest, backup); err != nil {
		b.logger.Warn("failed to rotate latest log", zap.Error(err))
		return
	}
	b.logger.Info("rotated large log file", zap.String("backup", backup), zap.Int64("size", info.Size()))
}

// Resolve maps a client-supplied file parameter to a path inside the log root.
// Paths that would escape the root fall back to root/<basename>; empty names mean latest.log.
func (b *Logbook) Resolve(name string) string {
	norm := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if norm == "" {
		return b.LatestFile()
	}

	rel := strings.TrimPrefix(norm, "/")
	candidate := filepath.Join(b.root, filepath.FromSlash(rel))
	if b.contains(candidate) {
		return candidate
	}

	base := filepath.Base(filepath.FromSlash(norm))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return b.LatestFile()
	}
	return filepath.Join(b.root, base)
}

// contains reports whether p is strictly inside the root.
func (b *Logbook) contains(p string) bool {
	rel, err := filepath.Rel(b.root, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EnsureFile creates path (and its parents) empty if it does not exist.
func (b *Logbook) EnsureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	return f.Close()
}

// List returns the .log/.jsonl files in the root, most recently modified first.
func (b *Logbook) List() ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read log root: %w", err)
	}

	type fileTime struct {
		name  string
		mtime time.Time
	}
	var files []fileTime
	for _, e := range entries {
		if !e.Type().IsRegular() || !isLogName(e.Name()) {
			continue
		}
		ft := fileTime{name: e.Name()}
		if info, err := e.Info(); err == nil {
			ft.mtime = info.ModTime()
		}
		files = append(files, ft)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.name)
	}
	return names, nil
}

func isLogName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".log") || strings.HasSuffix(lower, ".jsonl")
}

// Tail returns the non-empty lines after offset (clamped to [0, size]) and the current size.
// A missing file is created empty.
func (b *Logbook) Tail(name string, offset int64) ([]string, int64, error) {
	path := b.Resolve(name)
	if err := b.EnsureFile(path); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat log: %w", err)
	}
	size := info.Size()

	start := offset
	if start < 0 {
		start = 0
	}
	if start > size {
		start = size
	}

	data := make([]byte, size-start)
	if _, err := f.ReadAt(data, start); err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("failed to read log: %w", err)
	}
	return SplitLines(string(data)), size, nil
}

// Clear truncates a log file, creating it when missing.
func (b *Logbook) Clear(name string) error {
	path := b.Resolve(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to clear log: %w", err)
	}
	return f.Close()
}

// Ingest appends an externally supplied line to the named file only.
func (b *Logbook) Ingest(name string, line *models.LogLine) error {
	if line.Timestamp == "" {
		line.Timestamp = models.FormatTimestamp(b.now())
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode log line: %w", err)
	}
	if len(data) > maxIngestLineLen {
		return fmt.Errorf("log line too large: %d bytes", len(data))
	}
	data = append(data, '\n')

	path := b.Resolve(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	return appendFile(path, data)
}

// SplitLines splits text on \n or \r\n and drops empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
