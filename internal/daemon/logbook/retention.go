package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Prune removes daily and backup logs older than maxAge. latest.log and files
// the logbook did not produce are never touched. Returns the number removed.
func (b *Logbook) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(b.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read log root: %w", err)
	}

	cutoff := b.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()

		var stamp time.Time
		switch {
		case strings.HasPrefix(name, dailyPrefix) && strings.HasSuffix(name, ".log"):
			day := strings.TrimSuffix(strings.TrimPrefix(name, dailyPrefix), ".log")
			t, err := time.Parse(dailyDateLayout, day)
			if err != nil {
				continue
			}
			// A day is only expired once all of it is older than the cutoff.
			stamp = t.Add(24 * time.Hour)
		case strings.HasPrefix(name, backupPrefix):
			info, err := e.Info()
			if err != nil {
				continue
			}
			stamp = info.ModTime()
		default:
			continue
		}

		if !stamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.root, name)); err != nil {
			b.logger.Warn("failed to prune log", zap.String("file", name), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// Pruner removes entries older than maxAge and reports how many were removed.
type Pruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// Retention runs Prune on a cron schedule.
type Retention struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// StartRetention schedules pruning of logs, and of anything in extra, older than
// days. days <= 0 disables retention and returns nil.
func StartRetention(b *Logbook, days int, schedule string, logger *zap.Logger, extra ...Pruner) (*Retention, error) {
	if days <= 0 {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@daily"
	}

	r := &Retention{
		cron:   cron.New(),
		logger: logger.Named("retention"),
	}
	maxAge := time.Duration(days) * 24 * time.Hour

	targets := append([]Pruner{b}, extra...)
	_, err := r.cron.AddFunc(schedule, func() {
		removed := 0
		for _, t := range targets {
			n, err := t.Prune(maxAge)
			if err != nil {
				r.logger.Warn("retention pass failed", zap.Error(err))
				continue
			}
			removed += n
		}
		if removed > 0 {
			r.logger.Info("pruned old entries", zap.Int("removed", removed), zap.Int("retention_days", days))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule log retention: %w", err)
	}

	r.cron.Start()
	r.logger.Info("log retention scheduled", zap.String("schedule", schedule), zap.Int("retention_days", days))
	return r, nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (r *Retention) Stop() {
	if r == nil {
		return
	}
	<-r.cron.Stop().Done()
}
