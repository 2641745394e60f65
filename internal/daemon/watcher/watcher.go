// Package watcher follows log files as they grow and feeds new lines to streams.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DebounceInterval coalesces bursts of write events for the tailed file.
const DebounceInterval = 50 * time.Millisecond

// LineFunc receives one non-empty line. Returning an error stops the tail.
type LineFunc func(line string) error

// Tailer follows a single file.
type Tailer struct {
	path   string
	logger *zap.Logger

	fsWatcher *fsnotify.Watcher
	file      *os.File
	offset    int64
	partial   string

	debounceMu sync.Mutex
	debounce   *time.Timer
	changed    chan struct{}
}

// Tail emits every existing non-empty line of path, then follows it until ctx is
// cancelled or fn returns an error. The parent directory is watched so that the
// file being renamed or recreated is noticed. The open descriptor is read to EOF
// before a replaced file is reopened, so lines written just before a rotation
// are not lost. A shrinking file is re-read from the start.
func Tail(ctx context.Context, path string, logger *zap.Logger, fn LineFunc) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	t := &Tailer{
		path:      path,
		logger:    logger.Named("tail").With(zap.String("file", path)),
		fsWatcher: fsWatcher,
		changed:   make(chan struct{}, 1),
	}
	defer t.stopDebounce()
	defer t.closeFile()

	if err := t.readNew(fn); err != nil {
		return err
	}
	return t.loop(ctx, fn)
}

func (t *Tailer) loop(ctx context.Context, fn LineFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-t.fsWatcher.Events:
			if !ok {
				return nil
			}
			if t.handleEvent(event) {
				if err := t.readNew(fn); err != nil {
					return err
				}
			}
		case err, ok := <-t.fsWatcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("watcher error", zap.Error(err))
		case <-t.changed:
			if err := t.readNew(fn); err != nil {
				return err
			}
		}
	}
}

// handleEvent reports whether the file must be read right away. Writes are
// debounced; a rename or removal is handled at once so the old descriptor is
// drained before a newer file can take its place.
func (t *Tailer) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(t.path) {
		return false
	}
	if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
		return true
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		t.debounceEvent()
	}
	return false
}

// debounceEvent schedules a read once events stop arriving for DebounceInterval.
func (t *Tailer) debounceEvent() {
	t.debounceMu.Lock()
	defer t.debounceMu.Unlock()

	if t.debounce != nil {
		t.debounce.Stop()
	}
	t.debounce = time.AfterFunc(DebounceInterval, func() {
		select {
		case t.changed <- struct{}{}:
		default:
		}
	})
}

func (t *Tailer) stopDebounce() {
	t.debounceMu.Lock()
	defer t.debounceMu.Unlock()
	if t.debounce != nil {
		t.debounce.Stop()
	}
}

// readNew emits the lines written since the last read. When the path now names
// another file, the old descriptor is drained and the new file read from the start.
func (t *Tailer) readNew(fn LineFunc) error {
	for {
		if t.file == nil {
			f, err := os.Open(t.path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					t.logger.Warn("failed to open file", zap.Error(err))
				}
				// Rotated away; the next append recreates it.
				return nil
			}
			t.file = f
			t.offset = 0
			t.partial = ""
		}

		if err := t.drain(fn); err != nil {
			return err
		}
		if !t.replaced() {
			return nil
		}

		t.logger.Debug("file replaced, reopening")
		if t.partial != "" {
			line := t.partial
			t.partial = ""
			if err := fn(line); err != nil {
				return err
			}
		}
		t.closeFile()
	}
}

// replaced reports whether the path was removed or now names a different file.
func (t *Tailer) replaced() bool {
	current, err := os.Stat(t.path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	open, err := t.file.Stat()
	if err != nil {
		return true
	}
	return !os.SameFile(open, current)
}

// drain emits complete lines from the open descriptor up to its current end.
func (t *Tailer) drain(fn LineFunc) error {
	info, err := t.file.Stat()
	if err != nil {
		t.logger.Warn("failed to stat file", zap.Error(err))
		return nil
	}

	size := info.Size()
	if size < t.offset {
		t.logger.Debug("file shrank, restarting from beginning",
			zap.Int64("old_size", t.offset), zap.Int64("new_size", size))
		t.offset = 0
		t.partial = ""
	}
	if size == t.offset {
		return nil
	}

	buf := make([]byte, size-t.offset)
	n, err := t.file.ReadAt(buf, t.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		t.logger.Warn("failed to read file", zap.Error(err))
		return nil
	}
	t.offset += int64(n)

	text := t.partial + string(buf[:n])
	t.partial = ""
	if idx := strings.LastIndexByte(text, '\n'); idx < len(text)-1 {
		t.partial = text[idx+1:]
		text = text[:idx+1]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}
