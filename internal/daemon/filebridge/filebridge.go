// Package filebridge parses the file-bridge activity log written by the agents'
// file tools.
package filebridge

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/lccweb/agentwave/internal/models"
)

// MaxChanges bounds how many parsed entries Changes returns.
const MaxChanges = 500

// RecentWindow is how many trailing raw lines RecentWrites inspects by default.
const RecentWindow = 50

const writeMarker = "] WRITE: "

var entryPattern = regexp.MustCompile(`^\[(.*?)\]\s+(WRITE|DELETE|RESTORE|BACKUP):\s+(.*)$`)

// Bridge reads one file-bridge log.
type Bridge struct {
	path string
}

// New returns a Bridge over path. The file does not need to exist.
func New(path string) *Bridge {
	return &Bridge{path: path}
}

// Parse extracts a FileChange from one log line.
func Parse(line string) (models.FileChange, bool) {
	m := entryPattern.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return models.FileChange{}, false
	}
	return models.FileChange{
		Timestamp: m[1],
		Action:    m[2],
		Path:      strings.TrimSpace(m[3]),
	}, true
}

// Changes returns the last MaxChanges parsed entries, oldest first. A missing log
// yields an empty list.
func (b *Bridge) Changes() ([]models.FileChange, error) {
	lines, err := b.readLines()
	if err != nil {
		return nil, err
	}

	changes := make([]models.FileChange, 0, len(lines))
	for _, l := range lines {
		if c, ok := Parse(l); ok {
			changes = append(changes, c)
		}
	}
	if len(changes) > MaxChanges {
		changes = changes[len(changes)-MaxChanges:]
	}
	return changes, nil
}

// RecentWrites returns the paths of WRITE entries within the last n raw lines.
// Blank lines, including the one after a trailing newline, count toward n.
func (b *Bridge) RecentWrites(n int) ([]string, error) {
	if n <= 0 {
		n = RecentWindow
	}
	lines, err := b.rawLines()
	if err != nil {
		return nil, err
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	var paths []string
	for _, l := range lines {
		if i := strings.LastIndex(l, writeMarker); i >= 0 {
			paths = append(paths, l[i+len(writeMarker):])
		}
	}
	return paths, nil
}

func (b *Bridge) readLines() ([]string, error) {
	raw, err := b.rawLines()
	if err != nil {
		return nil, err
	}
	lines := raw[:0]
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (b *Bridge) rawLines() ([]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read file bridge log: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, nil
}
