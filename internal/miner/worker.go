package miner

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boomstarternetwork/gominer/internal/algo"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// staleStratumThreshold is the "> 120 s old" Stratum staleness check from
// spec.md §4.3 step 1.
const staleStratumThreshold = 120 * time.Second

// lpScanTime is LP_SCANTIME from spec.md §5: the floor applied to scantime
// when deciding a non-Stratum worker needs fresh work.
const lpScanTime = 60 * time.Second

// Default per-scan nonce budgets from spec.md §4.3 step 4, used when the
// remaining scantime is zero or negative.
const (
	defaultMaxNonceSHA256d  = 0x1fffff
	defaultMaxNonceScrypt   = 0x3fffff
	defaultMaxNonceScryptLo = 0x3ffff
	scryptLoThreshold       = 16
)

// Worker runs one mining worker's outer loop (spec.md §4.3): it owns nonce
// range [start, end), clones the shared job whenever it changes, runs the
// inner scan, tracks its hash rate, and submits any solution it finds.
type Worker struct {
	Index     int
	Total     int
	Algorithm algo.Algorithm
	ScanTime  time.Duration
	Stratum   bool

	Slot    *work.SharedSlot
	Restart *work.RestartFlags
	Rates   *Hashrates

	// RequestWork is called when a non-Stratum worker's slot needs
	// refreshing; it performs the Work I/O GetWork round-trip and returns
	// the new Work (already Txs-populated for GBT). May be nil in
	// Stratum/benchmark mode, where work arrives by other means.
	RequestWork func() (*work.Work, error)

	// SubmitSolution hands a solved Work (already a private clone) to the
	// Work I/O or Stratum submission path.
	SubmitSolution func(*work.Work)

	logger *logrus.Entry
}

// pollInterval is how long an idle worker sleeps before re-checking a
// stale or empty slot, avoiding a busy-wait while waiting on the network
// tasks to publish work.
const pollInterval = 500 * time.Millisecond

// Run executes the worker loop until ctx is cancelled. Per spec.md §5, the
// worker may pin itself to a dedicated OS thread with runtime.LockOSThread
// when thread count is a multiple of GOMAXPROCS, the portable analogue of
// the original's CPU-affinity pinning (see DESIGN.md).
func (w *Worker) Run(ctx context.Context) {
	if w.logger == nil {
		w.logger = logrus.WithField("component", "miner").WithField("worker", w.Index)
	}
	if w.Total > 0 && w.Total%runtime.GOMAXPROCS(0) == 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		w.logger.Debug("miner: pinned to dedicated OS thread")
	}

	start, end := Partition(w.Index, w.Total)
	nonce := start
	var current *work.Work

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		age := w.Slot.Age(now)

		if w.Stratum {
			if w.Slot.Empty() || age > staleStratumThreshold {
				time.Sleep(pollInterval)
				continue
			}
		} else if w.Slot.Empty() || age >= w.refreshThreshold() || nonce >= end {
			if w.RequestWork != nil {
				fresh, err := w.RequestWork()
				if err != nil {
					w.logger.WithError(err).Warn("miner: requesting fresh work")
					time.Sleep(pollInterval)
					continue
				}
				if fresh != nil {
					w.Slot.Set(fresh, time.Now())
				}
			}
		}

		snap, _ := w.Slot.Snapshot()
		if snap == nil {
			time.Sleep(pollInterval)
			continue
		}

		if current == nil || !snap.HeaderPrefixEqual(current) {
			current = snap
			nonce = start
		} else {
			current = snap
			nonce++
		}
		if nonce >= end {
			nonce = start
		}
		current.SetNonce(nonce)

		w.Restart.Clear(w.Index)

		maxNonce := w.computeMaxNonce(nonce, end)

		scanStart := time.Now()
		res := Scan(current, w.Algorithm, maxNonce, func() bool {
			return w.Restart.ShouldRestart(w.Index)
		})
		elapsed := time.Since(scanStart).Seconds()
		w.Rates.Update(w.Index, res.HashesTried, elapsed)

		nonce = res.Nonce

		if res.Found {
			solved := current.Clone()
			if w.SubmitSolution != nil {
				w.SubmitSolution(solved)
			}
		}
	}
}

// refreshThreshold is max(scantime, LP_SCANTIME), per spec.md §5.
func (w *Worker) refreshThreshold() time.Duration {
	if w.ScanTime > lpScanTime {
		return w.ScanTime
	}
	return lpScanTime
}

// computeMaxNonce implements spec.md §4.3 step 4: max_nonce = min(end, n +
// hashrate*remaining_scantime), falling back to an algorithm-specific
// default when the remaining scantime is non-positive (always true in
// Stratum mode, where refresh is notify-driven rather than scantime-driven).
func (w *Worker) computeMaxNonce(n, end uint32) uint32 {
	remaining := w.remainingScanTime()

	var budget uint64
	if remaining > 0 {
		budget = uint64(w.Rates.Get(w.Index) * remaining.Seconds())
	}
	if budget == 0 {
		budget = w.defaultBudget()
	}

	if budget > uint64(end-n) {
		return end
	}
	target := uint64(n) + budget
	if target > uint64(end) {
		return end
	}
	return uint32(target)
}

func (w *Worker) remainingScanTime() time.Duration {
	if w.Stratum {
		return 0
	}
	age := w.Slot.Age(time.Now())
	remaining := w.refreshThreshold() - age
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (w *Worker) defaultBudget() uint64 {
	if !w.Algorithm.IsScrypt() {
		return defaultMaxNonceSHA256d
	}
	n := w.Algorithm.N
	if n < scryptLoThreshold {
		return defaultMaxNonceScryptLo
	}
	return defaultMaxNonceScrypt / uint64(n)
}
