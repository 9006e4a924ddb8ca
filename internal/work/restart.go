package work

import "sync/atomic"

// RestartFlags is one atomic "please restart your scan" word per worker,
// the WorkRestart[N] array from spec.md §3. It exists because the inner
// hash loop already polls frequently, so a condition variable would be
// pure overhead.
type RestartFlags struct {
	flags []int32
}

// NewRestartFlags allocates flags for n workers, all initially clear.
func NewRestartFlags(n int) *RestartFlags {
	return &RestartFlags{flags: make([]int32, n)}
}

// AssertAll sets every worker's restart flag. Publishers call it right
// after SharedSlot.Set returns, so the flags are raised after the slot lock
// has been released, not while it is held.
func (r *RestartFlags) AssertAll() {
	for i := range r.flags {
		atomic.StoreInt32(&r.flags[i], 1)
	}
}

// Assert sets a single worker's restart flag.
func (r *RestartFlags) Assert(i int) {
	atomic.StoreInt32(&r.flags[i], 1)
}

// Clear resets worker i's restart flag, typically at the start of its outer
// iteration once it has re-read the slot.
func (r *RestartFlags) Clear(i int) {
	atomic.StoreInt32(&r.flags[i], 0)
}

// ShouldRestart reports whether worker i has been asked to restart.
func (r *RestartFlags) ShouldRestart(i int) bool {
	return atomic.LoadInt32(&r.flags[i]) != 0
}

// Len returns the number of workers tracked.
func (r *RestartFlags) Len() int {
	return len(r.flags)
}
