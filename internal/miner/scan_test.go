package miner

import (
	"testing"

	"github.com/boomstarternetwork/gominer/internal/algo"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// TestPartitionDisjoint checks that N workers' partitions are non-empty,
// pairwise disjoint and ascending, with thread 0 starting at 0, grounded on
// cpu-miner.c's end_nonce/start arithmetic
// (0xffffffffU / opt_n_threads * (thr_id+1) - 0x20). The 0x20 headroom
// leaves a gap before each next partition's start.
func TestPartitionDisjoint(t *testing.T) {
	const n = 4
	var prevEnd uint32
	for k := 0; k < n; k++ {
		start, end := Partition(k, n)
		if k == 0 && start != 0 {
			t.Errorf("thread 0 should start at 0, got %#x", start)
		}
		if k > 0 && start < prevEnd {
			t.Errorf("thread %d start %#x overlaps previous thread's end %#x", k, start, prevEnd)
		}
		if end <= start {
			t.Errorf("thread %d has empty or inverted range [%#x, %#x)", k, start, end)
		}
		prevEnd = end
	}
}

// TestPartitionThread3Of4 pins down the exact boundary arithmetic from
// cpu-miner.c's get_work/miner_thread: span = 0xffffffffU / N.
func TestPartitionThread3Of4(t *testing.T) {
	start, end := Partition(3, 4)
	wantStart := uint32(0xffffffff/4) * 3
	wantEnd := uint32(0xffffffff/4)*4 - 0x20
	if start != wantStart {
		t.Errorf("start = %#x, want %#x", start, wantStart)
	}
	if end != wantEnd {
		t.Errorf("end = %#x, want %#x", end, wantEnd)
	}
}

// TestScanFindsSolution exercises invariant 2: Scan only reports Found for
// a nonce whose hash, read as 256-bit little-endian, is strictly less than
// target.
func TestScanFindsSolution(t *testing.T) {
	w := &work.Work{}
	// An all-0xff target with the very top bit cleared: about half of all
	// hashes fall below it, so a solution turns up within a few nonces.
	for i := range w.Target {
		w.Target[i] = 0xffffffff
	}
	w.Target[7] = 0x7fffffff

	res := Scan(w, algo.SHA256d, 1000, nil)
	if !res.Found {
		t.Fatal("expected to find a solution quickly against a near-maximal target")
	}

	header := w.HeaderBytes()
	h := algo.SHA256d.Hash(header)
	if !work.HashLessThanTarget(h, w.Target) {
		t.Error("reported solution's hash does not satisfy target")
	}
}

// TestScanRespectsMaxNonce verifies Scan gives up at maxNonce when the
// target is unreachable in range.
func TestScanRespectsMaxNonce(t *testing.T) {
	w := &work.Work{}
	// All-zero target: no hash is ever strictly less than it.
	res := Scan(w, algo.SHA256d, 50, nil)
	if res.Found {
		t.Fatal("should not find a solution against an all-zero target")
	}
	if res.HashesTried != 51 {
		t.Errorf("HashesTried = %d, want 51 (nonces 0..50 inclusive)", res.HashesTried)
	}
}

// TestScanHonorsRestart verifies Scan stops early when restart reports
// true, never scanning past the point where it was asked to stop.
func TestScanHonorsRestart(t *testing.T) {
	w := &work.Work{}
	called := false
	res := Scan(w, algo.SHA256d, 0xffffffff, func() bool {
		called = true
		return true
	})
	if res.Found {
		t.Fatal("should not find a solution against an all-zero target")
	}
	if !called {
		t.Error("restart callback was never invoked")
	}
	if res.HashesTried > scanRestartCheckInterval*2 {
		t.Errorf("scan ran %d hashes past its first restart check, want close to %d", res.HashesTried, scanRestartCheckInterval)
	}
}

func TestBenchmarkWork(t *testing.T) {
	w := BenchmarkWork()
	for i := 0; i <= 16; i++ {
		if w.Data[i] != 0x55555555 {
			t.Errorf("Data[%d] = %#x, want 0x55555555", i, w.Data[i])
		}
	}
	for _, word := range w.Target {
		if word != 0xffffffff {
			t.Error("benchmark target should be the easiest possible target")
		}
	}
}
