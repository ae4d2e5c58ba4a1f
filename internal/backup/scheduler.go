// Package backup decides when cloud backups run and orchestrates the
// upload/merge/restore round-trips against the remote file store.
package backup

import (
	"time"
)

// DefaultInterval is the minimum time between automatic backups.
const DefaultInterval = 24 * time.Hour

// Scheduler decides whether a backup is due and whether a first-run
// restore should happen. It is advisory only and holds no timers; the
// service owns the periodic loop.
type Scheduler struct {
	interval time.Duration
}

// NewScheduler creates a scheduler with the given backup interval.
// A non-positive interval falls back to DefaultInterval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Due reports whether an automatic backup should run: true when no
// backup has ever completed, or when strictly more than the interval
// has elapsed since the last one. Exactly-at-the-boundary is not due.
func (s *Scheduler) Due(lastBackupTime *time.Time, now time.Time) bool {
	if lastBackupTime == nil {
		return true
	}
	return now.Sub(*lastBackupTime) > s.interval
}

// ShouldRestoreOnFirstRun reports whether an automatic restore may
// adopt a remote backup: only when there are zero local notes,
// signaling a fresh install. A non-empty local store is never
// overwritten automatically, regardless of remote state - local data
// always wins over a non-user-initiated restore.
func (s *Scheduler) ShouldRestoreOnFirstRun(hasLocalNotes, hasLastBackupTime bool) bool {
	_ = hasLastBackupTime // a stale bookkeeping field never blocks a fresh-install restore
	return !hasLocalNotes
}
