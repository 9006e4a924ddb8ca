// Package miner runs the mining worker loop of spec.md §4.3: each worker
// owns a disjoint nonce-range partition, clones the shared job when it
// changes, runs the inner hash scan, tracks its hash rate, and hands any
// solution to the Work I/O task.
package miner

import (
	"github.com/boomstarternetwork/gominer/internal/algo"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// nonceHeadroom is the "-0x20" truncation every worker's partition upper
// bound carries, per spec.md §9 Open Question (a): headroom the original
// SIMD scanners need to avoid wrapping mid-batch. We have no SIMD lanes in
// this Go port, but the partitions are kept identical to the original so
// property 3 (disjoint, union-covering partitions) holds against the same
// arithmetic a reader of the original would expect.
const nonceHeadroom = 0x20

// Partition returns the nonce range [start, end) owned by worker k of n,
// per spec.md §4.3 and testable property 3.
func Partition(k, n int) (start, end uint32) {
	span := uint32(0xffffffff) / uint32(n)
	start = span * uint32(k)
	end = span*uint32(k+1) - nonceHeadroom
	return start, end
}

// ScanResult is the outcome of one call to Scan.
type ScanResult struct {
	Found       bool
	Nonce       uint32
	HashesTried uint64
}

// Scan implements spec.md §4.3's inner-scan contract: starting from
// w.Nonce(), it tries successive nonces up to and including maxNonce,
// mutating w's nonce word in place, until it finds one whose hash (under
// algorithm a) compares less than target, or maxNonce is reached, or
// restart reports true. It polls restart every scanRestartCheckInterval
// hashes, cheap enough not to show up in the hot loop's profile but
// frequent enough that a restart request is honored within a few thousand
// hashes, per spec.md §5.
func Scan(w *work.Work, a algo.Algorithm, maxNonce uint32, restart func() bool) ScanResult {
	header := w.HeaderBytes()
	nonce := w.Nonce()
	var tried uint64

	for {
		putNonce(header, nonce)
		h := a.Hash(header)
		tried++

		if work.HashLessThanTarget(h, w.Target) {
			w.SetNonce(nonce)
			return ScanResult{Found: true, Nonce: nonce, HashesTried: tried}
		}

		if nonce >= maxNonce {
			w.SetNonce(nonce)
			return ScanResult{Found: false, Nonce: nonce, HashesTried: tried}
		}

		if tried%scanRestartCheckInterval == 0 && restart != nil && restart() {
			w.SetNonce(nonce)
			return ScanResult{Found: false, Nonce: nonce, HashesTried: tried}
		}

		nonce++
	}
}

// scanRestartCheckInterval is how often, in hashes, Scan polls the restart
// callback -- "every few thousand hashes" per spec.md §5.
const scanRestartCheckInterval = 2048

func putNonce(header []byte, nonce uint32) {
	header[76] = byte(nonce)
	header[77] = byte(nonce >> 8)
	header[78] = byte(nonce >> 16)
	header[79] = byte(nonce >> 24)
}
