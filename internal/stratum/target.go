package stratum

import (
	"math/big"

	"github.com/boomstarternetwork/gominer/internal/algo"
)

// diff1SHA256d is the SHA-256d difficulty-1 target: the classic Bitcoin
// nBits 0x1d00ffff expanded out, 0x0000ffff * 256^(0x1d-3) = 0xffff0000 *
// 2^192. This is the authentic pooler/cpuminer-multi constant used in
// diff_to_target; the target is this value divided by the difficulty.
var diff1SHA256d = new(big.Int).Lsh(big.NewInt(0xffff0000), 192)

// scryptDiffMultiplier accounts for the historical convention that scrypt
// pools report difficulty on a scale 65536x coarser than the SHA-256d
// difficulty-1 target, per spec.md §4.2.
const scryptDiffMultiplier = 65536

// DiffToTarget converts a Stratum-notified difficulty into the 256-bit
// little-endian-word Target representation. difficulty <= 0 is treated as
// the easiest possible target (all bits set).
func DiffToTarget(difficulty float64, algorithm algo.Algorithm) [8]uint32 {
	var target [8]uint32

	if difficulty <= 0 {
		for i := range target {
			target[i] = 0xffffffff
		}
		return target
	}

	diff1 := new(big.Float).SetInt(diff1SHA256d)
	d := big.NewFloat(difficulty)
	if algorithm.IsScrypt() {
		d.Mul(d, big.NewFloat(scryptDiffMultiplier))
	}

	quotient := new(big.Float).Quo(diff1, d)
	targetInt, _ := quotient.Int(nil)

	bytes := make([]byte, 32)
	targetInt.FillBytes(bytes)
	for i := 0; i < 8; i++ {
		target[7-i] = be32(bytes[4*i : 4*i+4])
	}
	return target
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
