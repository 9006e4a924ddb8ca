package blockassembler

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"

	"github.com/boomstarternetwork/gominer/internal/work"
)

// ErrInvalidTarget is returned when a template's "target" field does not
// decode to exactly 32 bytes.
var ErrInvalidTarget = errors.New("blockassembler: invalid target")

// assembleHeader packs version, prev-hash, Merkle root, curtime, and bits
// into Data[0..19], per spec.md §4.1 step 7. prevHash is the raw bytes
// decoded straight from the template's previousblockhash hex string (no
// byte reversal -- the word-level remapping below reproduces the
// original's swab32/le32dec/be32dec dance without a custom SHA-256
// transform). root is the raw Merkle root bytes produced by merkleRoot.
func assembleHeader(w *work.Work, version uint32, prevHash [32]byte, root [32]byte, curtime uint32, bitsHex string) error {
	w.Data[0] = bits.ReverseBytes32(version)

	for i := 0; i < 8; i++ {
		w.Data[8-i] = binary.LittleEndian.Uint32(prevHash[4*i : 4*i+4])
	}

	for i := 0; i < 8; i++ {
		w.Data[9+i] = binary.BigEndian.Uint32(root[4*i : 4*i+4])
	}

	w.Data[17] = bits.ReverseBytes32(curtime)

	bitsBytes, err := hex.DecodeString(bitsHex)
	if err != nil || len(bitsBytes) != 4 {
		return fmt.Errorf("blockassembler: invalid bits %q", bitsHex)
	}
	w.Data[18] = binary.LittleEndian.Uint32(bitsBytes)

	w.Data[19] = 0

	w.PreparePadding()
	return nil
}

// parseTarget decodes a big-endian hex target string into the
// little-endian-word Target representation (Target[0] least significant).
func parseTarget(hexTarget string) ([8]uint32, error) {
	var target [8]uint32

	raw, err := hex.DecodeString(hexTarget)
	if err != nil {
		return target, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if len(raw) != 32 {
		return target, fmt.Errorf("%w: %d bytes, want 32", ErrInvalidTarget, len(raw))
	}

	for i := 0; i < 8; i++ {
		target[7-i] = binary.BigEndian.Uint32(raw[4*i : 4*i+4])
	}
	return target, nil
}
