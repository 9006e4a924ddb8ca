package stratum

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/boomstarternetwork/gominer/internal/algo"
)

// notifyFixture wires a minimal subscribed Context up to a single
// mining.notify job, ready for GenerateWork.
func notifyFixture(t *testing.T) *Context {
	t.Helper()
	c := NewContext(algo.SHA256d)
	if err := c.SetSubscription("01020304", 4); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	c.SetDifficulty(1)
	c.SetNotify(NotifyParams{
		JobID:          "job1",
		PrevHash:       hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)),
		Coinb1:         "01",
		Coinb2:         "02",
		MerkleBranches: nil,
		Version:        "00000001",
		NBits:          "1d00ffff",
		NTime:          "5f000000",
		Clean:          true,
	})
	return c
}

// TestStratumMerkleFold is the boundary scenario named S4 in spec.md §8:
// given a coinbase hash c and branch [b1, b2], the folded root must equal
// SHA256d(SHA256d(c||b1) || b2) with no duplication of the last element.
func TestStratumMerkleFold(t *testing.T) {
	hash := algo.SHA256d.Hash

	c := NewContext(algo.SHA256d)
	if err := c.SetSubscription("", 0); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	c.SetDifficulty(1)

	coinbaseHash := hash([]byte("coinbase"))
	b1 := hash([]byte("branch-one"))
	b2 := hash([]byte("branch-two"))

	c.SetNotify(NotifyParams{
		JobID:          "fold",
		PrevHash:       hex.EncodeToString(bytes.Repeat([]byte{0}, 32)),
		Coinb1:         hex.EncodeToString([]byte("coinbase")),
		Coinb2:         "",
		MerkleBranches: []string{hex.EncodeToString(b1[:]), hex.EncodeToString(b2[:])},
		Version:        "00000001",
		NBits:          "1d00ffff",
		NTime:          "5f000000",
		Clean:          true,
	})

	w, err := c.GenerateWork()
	if err != nil {
		t.Fatalf("GenerateWork: %v", err)
	}

	step1 := hash(append(append([]byte{}, coinbaseHash[:]...), b1[:]...))
	want := hash(append(append([]byte{}, step1[:]...), b2[:]...))

	var gotRoot [32]byte
	for i := 0; i < 8; i++ {
		b := make([]byte, 4)
		// words were packed little-endian from the root's bytes.
		word := w.Data[9+i]
		b[0] = byte(word)
		b[1] = byte(word >> 8)
		b[2] = byte(word >> 16)
		b[3] = byte(word >> 24)
		copy(gotRoot[4*i:4*i+4], b)
	}

	if gotRoot != want {
		t.Errorf("folded merkle root = %x, want %x", gotRoot, want)
	}
}

// TestStratumMerkleFoldIgnoresAlgorithm guards against a regression where
// the merkle fold was parametrized by the Context's configured mining
// algorithm: spec.md §4.2 steps 2-3 say the fold is always double-SHA-256,
// regardless of whether the miner itself hashes the header with sha256d or
// scrypt (a scrypt-folded merkle root would be rejected by any real
// server).
func TestStratumMerkleFoldIgnoresAlgorithm(t *testing.T) {
	hash := algo.SHA256dHash

	c := NewContext(algo.Scrypt)
	if err := c.SetSubscription("", 0); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	c.SetDifficulty(1)

	coinbaseHash := hash([]byte("coinbase"))
	b1 := hash([]byte("branch-one"))

	c.SetNotify(NotifyParams{
		JobID:          "fold-scrypt",
		PrevHash:       hex.EncodeToString(bytes.Repeat([]byte{0}, 32)),
		Coinb1:         hex.EncodeToString([]byte("coinbase")),
		Coinb2:         "",
		MerkleBranches: []string{hex.EncodeToString(b1[:])},
		Version:        "00000001",
		NBits:          "1d00ffff",
		NTime:          "5f000000",
		Clean:          true,
	})

	w, err := c.GenerateWork()
	if err != nil {
		t.Fatalf("GenerateWork: %v", err)
	}

	want := hash(append(append([]byte{}, coinbaseHash[:]...), b1[:]...))

	var gotRoot [32]byte
	for i := 0; i < 8; i++ {
		word := w.Data[9+i]
		gotRoot[4*i] = byte(word)
		gotRoot[4*i+1] = byte(word >> 8)
		gotRoot[4*i+2] = byte(word >> 16)
		gotRoot[4*i+3] = byte(word >> 24)
	}

	if gotRoot != want {
		t.Errorf("folded merkle root under scrypt context = %x, want double-SHA-256 fold %x", gotRoot, want)
	}
}

// TestExtraNonce2IncrementsByOne is testable property 5 of spec.md §8: the
// xnonce2 counter increments by exactly 1 (little-endian) per Stratum job
// generation.
func TestExtraNonce2IncrementsByOne(t *testing.T) {
	c := notifyFixture(t)

	w1, err := c.GenerateWork()
	if err != nil {
		t.Fatalf("GenerateWork #1: %v", err)
	}
	w2, err := c.GenerateWork()
	if err != nil {
		t.Fatalf("GenerateWork #2: %v", err)
	}

	n1 := leToUint32(w1.ExtraNonce2)
	n2 := leToUint32(w2.ExtraNonce2)
	if n2 != n1+1 {
		t.Errorf("extraNonce2 went from %d to %d, want +1", n1, n2)
	}
}

func TestExtraNonce2CarryRipples(t *testing.T) {
	c := NewContext(algo.SHA256d)
	if err := c.SetSubscription("", 2); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	c.SetDifficulty(1)
	c.SetNotify(NotifyParams{
		JobID:    "carry",
		PrevHash: hex.EncodeToString(bytes.Repeat([]byte{0}, 32)),
		Coinb1:   "",
		Coinb2:   "",
		Version:  "00000001",
		NBits:    "1d00ffff",
		NTime:    "5f000000",
		Clean:    true,
	})

	c.extraNonce2 = []byte{0xff, 0x00}
	w, err := c.GenerateWork()
	if err != nil {
		t.Fatalf("GenerateWork: %v", err)
	}
	if !bytes.Equal(w.ExtraNonce2, []byte{0xff, 0x00}) {
		t.Fatalf("returned work should carry the pre-increment counter value, got %x", w.ExtraNonce2)
	}
	if !bytes.Equal(c.extraNonce2, []byte{0x00, 0x01}) {
		t.Errorf("extraNonce2 after carry = %x, want 0001", c.extraNonce2)
	}
}

func TestGenerateWorkBeforeNotifyFails(t *testing.T) {
	c := NewContext(algo.SHA256d)
	if err := c.SetSubscription("0102", 2); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	if _, err := c.GenerateWork(); err != ErrNoJob {
		t.Errorf("GenerateWork before notify = %v, want ErrNoJob", err)
	}
}

func leToUint32(b []byte) uint32 {
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}
