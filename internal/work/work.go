// Package work holds the unit of mining effort (Work), the shared slot that
// publishes it to every worker, and the per-worker restart flags. It mirrors
// the g_work / g_work_time / work_restart triple from the pooler/cpuminer
// lineage, split into small, independently lockable pieces.
package work

import "encoding/binary"

// Work is a candidate block header plus everything needed to submit a
// solution for it. Data holds the 80-byte header (words 0..19) followed by
// the SHA-256 padding words (20..31) used by the original C miner's
// streaming hasher; this Go implementation hashes the 80 raw bytes directly
// with crypto/sha256, so only words 0..19 are load-bearing, but the padding
// words are still populated by PreparePadding, so the 128-byte getwork
// submission carries them.
type Work struct {
	Data   [32]uint32
	Target [8]uint32

	Height uint32
	Txs    string
	WorkID string

	JobID           string
	ExtraNonce2     []byte
	ExtraNonce2Size int
}

// Clone returns a deep copy of w. Byte slices and strings are copied so the
// clone shares no mutable state with the original; this is the deep-copy
// discipline spec.md §3/§9 requires of SharedSlot occupants.
func (w *Work) Clone() *Work {
	if w == nil {
		return nil
	}
	c := *w
	if w.ExtraNonce2 != nil {
		c.ExtraNonce2 = make([]byte, len(w.ExtraNonce2))
		copy(c.ExtraNonce2, w.ExtraNonce2)
	}
	return &c
}

// HeaderBytes serializes Data words 0..19 back into the 80-byte header, in
// the same little-endian word packing used when the header was assembled.
func (w *Work) HeaderBytes() []byte {
	b := make([]byte, 80)
	for i := 0; i < 20; i++ {
		binary.LittleEndian.PutUint32(b[4*i:4*i+4], w.Data[i])
	}
	return b
}

// PreparePadding fills the SHA-256 padding words (20..31) for an 80-byte
// (640-bit) message: a single 1-bit (data[20] = 0x80000000) followed by
// zeros and a 64-bit big-endian bit-length in the last word.
func (w *Work) PreparePadding() {
	for i := 20; i < 32; i++ {
		w.Data[i] = 0
	}
	w.Data[20] = 0x80000000
	w.Data[31] = 0x00000280
}

// Nonce returns the current nonce word (data[19]).
func (w *Work) Nonce() uint32 { return w.Data[19] }

// SetNonce overwrites the nonce word in place.
func (w *Work) SetNonce(n uint32) { w.Data[19] = n }

// HeaderPrefixEqual reports whether the first 76 bytes (words 0..18:
// version, prev-hash, merkle-root, ntime, nbits) of w and other are
// identical. This is the boundary the worker loop uses to decide whether a
// freshly observed slot is actually new work, matching the original
// `memcmp(work.data, g_work.data, 76)` check.
func (w *Work) HeaderPrefixEqual(other *Work) bool {
	if other == nil {
		return false
	}
	for i := 0; i <= 18; i++ {
		if w.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// PrevHashEqual reports whether the prev-hash words (1..8, 32 bytes) of w
// and other match. Used by the stale-share gate: a solution whose prev-hash
// no longer matches the live slot is for an abandoned chain tip.
func (w *Work) PrevHashEqual(other *Work) bool {
	if other == nil {
		return false
	}
	for i := 1; i <= 8; i++ {
		if w.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// IncrementExtraNonce2 advances the Stratum extranonce2 counter by one,
// treating it as a little-endian integer and rippling the carry across
// bytes, exactly as the original xnonce2 increment does.
func (w *Work) IncrementExtraNonce2() {
	for i := range w.ExtraNonce2 {
		w.ExtraNonce2[i]++
		if w.ExtraNonce2[i] != 0 {
			return
		}
	}
}

// WordsFromHash reinterprets a 32-byte digest as eight little-endian 32-bit
// words, word 0 least significant. This is the layout HashLessThanTarget and
// Target share.
func WordsFromHash(h [32]byte) [8]uint32 {
	var w [8]uint32
	for i := 0; i < 8; i++ {
		w[i] = binary.LittleEndian.Uint32(h[4*i : 4*i+4])
	}
	return w
}

// HashLessThanTarget reports whether digest h, read as a 256-bit
// little-endian integer, is strictly less than target. Comparison proceeds
// word 7 (most significant) down to word 0, per spec.md §4.3.
func HashLessThanTarget(h [32]byte, target [8]uint32) bool {
	hw := WordsFromHash(h)
	for i := 7; i >= 0; i-- {
		switch {
		case hw[i] < target[i]:
			return true
		case hw[i] > target[i]:
			return false
		}
	}
	return false
}
