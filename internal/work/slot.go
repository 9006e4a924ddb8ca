package work

import (
	"sync"
	"time"
)

// SharedSlot is the single mutable "current job" cell described in spec.md
// §3: one Work plus the timestamp it was published, guarded by one mutex.
// It is written by the long-poll, Stratum, and work-I/O tasks and read by
// every mining worker.
type SharedSlot struct {
	mu        sync.Mutex
	current   *Work
	updatedAt time.Time
}

// NewSharedSlot returns an empty slot. Set must be called before any worker
// calls Snapshot.
func NewSharedSlot() *SharedSlot {
	return &SharedSlot{}
}

// Set installs w as the current job and stamps the update time. The
// previous occupant is simply dropped; Go's GC retires its heap
// attachments, which stands in for the original's explicit free-then-deep-copy
// dance.
func (s *SharedSlot) Set(w *Work, now time.Time) {
	s.mu.Lock()
	s.current = w
	s.updatedAt = now
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current job and the time it was
// published. Callers get their own private Work so they can mutate the
// nonce freely without holding the slot lock during the scan.
func (s *SharedSlot) Snapshot() (*Work, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone(), s.updatedAt
}

// Age reports how long it has been since the slot was last published.
func (s *SharedSlot) Age(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updatedAt.IsZero() {
		return 0
	}
	return now.Sub(s.updatedAt)
}

// Empty reports whether the slot has never been populated.
func (s *SharedSlot) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == nil
}
