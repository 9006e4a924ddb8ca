package stratum

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/boomstarternetwork/gominer/internal/algo"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// NotifyParams is the decoded payload of a mining.notify call.
type NotifyParams struct {
	JobID          string
	PrevHash       string
	Coinb1         string
	Coinb2         string
	MerkleBranches []string
	Version        string
	NBits          string
	NTime          string
	Clean          bool
}

// ErrNoJob is returned by GenerateWork before any mining.notify has been
// received.
var ErrNoJob = errors.New("stratum: no job notified yet")

// Context is the StratumContext of spec.md §3: the most recently notified
// job parameters plus subscription/difficulty state, guarded by its own
// work lock. GenerateWork implements the §4.2 job-generation algorithm.
type Context struct {
	mu sync.Mutex // the "work lock" of spec.md §4.2/§5

	notify NotifyParams
	hasJob bool

	extraNonce1     []byte
	extraNonce2Size int
	extraNonce2     []byte

	difficulty float64
	algorithm  algo.Algorithm
}

// NewContext returns a Context for the given proof-of-work algorithm.
func NewContext(algorithm algo.Algorithm) *Context {
	return &Context{algorithm: algorithm, difficulty: 1}
}

// SetSubscription records the extraNonce1/extraNonce2Size pair returned by
// mining.subscribe, and resets the extraNonce2 counter to its zero value.
func (c *Context) SetSubscription(extraNonce1 string, extraNonce2Size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := hex.DecodeString(extraNonce1)
	if err != nil {
		return fmt.Errorf("stratum: decoding extraNonce1: %w", err)
	}
	c.extraNonce1 = b
	c.extraNonce2Size = extraNonce2Size
	c.extraNonce2 = make([]byte, extraNonce2Size)
	return nil
}

// SetDifficulty installs a new mining.set_difficulty value.
func (c *Context) SetDifficulty(difficulty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.difficulty = difficulty
}

// SetNotify installs new mining.notify parameters.
func (c *Context) SetNotify(p NotifyParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = p
	c.hasJob = true
}

// JobID returns the most recently notified job id.
func (c *Context) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify.JobID
}

// GenerateWork implements spec.md §4.2: it assembles the coinbase from the
// cached notify parameters, the subscribed extraNonce1, and the current
// extraNonce2 counter value, folds the Merkle branch, packs the header,
// converts the live difficulty to a target, and advances extraNonce2 by
// one for the next call.
func (c *Context) GenerateWork() (*work.Work, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasJob {
		return nil, ErrNoJob
	}

	coinb1, err := hex.DecodeString(c.notify.Coinb1)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding coinb1: %w", err)
	}
	coinb2, err := hex.DecodeString(c.notify.Coinb2)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding coinb2: %w", err)
	}

	xnonce2 := append([]byte{}, c.extraNonce2...)

	coinbase := make([]byte, 0, len(coinb1)+len(c.extraNonce1)+len(xnonce2)+len(coinb2))
	coinbase = append(coinbase, coinb1...)
	coinbase = append(coinbase, c.extraNonce1...)
	coinbase = append(coinbase, xnonce2...)
	coinbase = append(coinbase, coinb2...)

	// The merkle fold is always double-SHA-256 (spec.md §4.2 steps 2-3,
	// testable property S4), independent of c.algorithm -- the merkle root
	// is a consensus field, not a PoW input. c.algorithm only selects the
	// header's proof-of-work hash, applied later by internal/miner.
	root := algo.SHA256dHash(coinbase)
	for _, branchHex := range c.notify.MerkleBranches {
		branch, err := hex.DecodeString(branchHex)
		if err != nil {
			return nil, fmt.Errorf("stratum: decoding merkle branch: %w", err)
		}
		concat := append(append([]byte{}, root[:]...), branch...)
		root = algo.SHA256dHash(concat)
	}

	prevHash, err := decodeNotifyPrevHash(c.notify.PrevHash)
	if err != nil {
		return nil, err
	}
	versionBytes, err := decodeReversed(c.notify.Version)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding version: %w", err)
	}
	nbitsBytes, err := decodeReversed(c.notify.NBits)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding nbits: %w", err)
	}
	ntimeBytes, err := decodeReversed(c.notify.NTime)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding ntime: %w", err)
	}

	w := &work.Work{
		JobID:           c.notify.JobID,
		ExtraNonce2:     xnonce2,
		ExtraNonce2Size: c.extraNonce2Size,
	}
	w.Data[0] = binary.LittleEndian.Uint32(versionBytes)
	for i := 0; i < 8; i++ {
		w.Data[1+i] = binary.LittleEndian.Uint32(prevHash[4*i : 4*i+4])
	}
	for i := 0; i < 8; i++ {
		w.Data[9+i] = binary.LittleEndian.Uint32(root[4*i : 4*i+4])
	}
	w.Data[17] = binary.LittleEndian.Uint32(ntimeBytes)
	w.Data[18] = binary.LittleEndian.Uint32(nbitsBytes)
	w.Data[19] = 0
	w.PreparePadding()

	w.Target = DiffToTarget(c.difficulty, c.algorithm)

	incrementCounter(c.extraNonce2)

	return w, nil
}

// decodeReversed hex-decodes s and reverses the resulting bytes in place,
// turning the big-endian-displayed notify fields (version/nbits/ntime)
// into their little-endian wire form.
func decodeReversed(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b, nil
}

// decodeNotifyPrevHash decodes a mining.notify prevhash field into its
// wire byte order. Stratum servers send prevhash as eight little-endian
// words, but in reverse word order; restoring word order and then
// reversing the whole buffer yields the standard header byte sequence.
func decodeNotifyPrevHash(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("stratum: decoding prevhash: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("stratum: prevhash is %d bytes, want 32", len(b))
	}

	wordSwapped := make([]byte, 32)
	for i := 0; i < 32; i += 4 {
		copy(wordSwapped[32-i-4:32-i], b[i:i+4])
	}
	for i, j := 0, len(wordSwapped)-1; i < j; i, j = i+1, j-1 {
		wordSwapped[i], wordSwapped[j] = wordSwapped[j], wordSwapped[i]
	}
	return wordSwapped, nil
}

// incrementCounter advances a little-endian byte counter by one, rippling
// the carry, per spec.md testable property 5.
func incrementCounter(b []byte) {
	for i := range b {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}
