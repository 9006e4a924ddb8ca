// Package addr converts a base58check payout address into the P2PKH
// scriptPubKey the GetBlockTemplate coinbase output pays to. It is the
// "address-to-script conversion" external collaborator named in spec.md
// section 1; it is needed end to end even though the spec only specifies it
// by interface.
package addr

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// opcodes used by the standard pay-to-pubkey-hash script template.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	hash160Len    = 20
)

// ErrInvalidAddress is returned when the given string does not decode to a
// valid base58check P2PKH payload.
var ErrInvalidAddress = errors.New("addr: invalid address")

// Hash160 decodes a base58check-encoded address and returns its 20-byte
// public-key hash, after verifying the trailing 4-byte checksum.
//
// Ported from the teacher's hex-substring trick (addrToHash160 in the
// original main.go) but hardened with an explicit length and checksum
// check, since this is now a library entry point rather than a one-shot
// script.
func Hash160(address string) ([20]byte, error) {
	var out [20]byte

	decoded := base58.Decode(address)
	// version byte (1) + hash160 (20) + checksum (4)
	if len(decoded) != 1+hash160Len+4 {
		return out, fmt.Errorf("%w: %q decodes to %d bytes, want 25", ErrInvalidAddress, address, len(decoded))
	}

	payload := decoded[:1+hash160Len]
	checksum := decoded[1+hash160Len:]

	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	if !bytes.Equal(h2[:4], checksum) {
		return out, fmt.Errorf("%w: %q fails checksum", ErrInvalidAddress, address)
	}

	copy(out[:], decoded[1:1+hash160Len])
	return out, nil
}

// PayToPubKeyHashScript builds the standard P2PKH scriptPubKey:
//
//	OP_DUP OP_HASH160 <20-byte push> <hash160> OP_EQUALVERIFY OP_CHECKSIG
func PayToPubKeyHashScript(address string) ([]byte, error) {
	hash, err := Hash160(address)
	if err != nil {
		return nil, err
	}

	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, hash160Len)
	script = append(script, hash[:]...)
	script = append(script, opEqualVerify, opCheckSig)
	return script, nil
}
