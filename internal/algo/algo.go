// Package algo implements the proof-of-work hash primitives and the
// Algorithm selector used throughout the miner.
package algo

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Algorithm identifies a proof-of-work hash function.
type Algorithm struct {
	Name string
	// N is the scrypt cost parameter. Zero for sha256d.
	N int
}

// SHA256d is the Bitcoin-family double-SHA-256 algorithm.
var SHA256d = Algorithm{Name: "sha256d"}

// DefaultScryptN is the scrypt cost parameter used by Litecoin-family coins
// when none is given explicitly (scrypt(1024,1,1)).
const DefaultScryptN = 1024

// NewScrypt returns the scrypt algorithm with cost parameter n.
func NewScrypt(n int) Algorithm {
	return Algorithm{Name: "scrypt", N: n}
}

// Scrypt is the default-cost scrypt algorithm.
var Scrypt = NewScrypt(DefaultScryptN)

func (a Algorithm) String() string {
	if a.Name == "scrypt" && a.N != DefaultScryptN {
		return fmt.Sprintf("scrypt:%d", a.N)
	}
	return a.Name
}

// IsScrypt reports whether a is a scrypt-family algorithm.
func (a Algorithm) IsScrypt() bool {
	return a.Name == "scrypt"
}

// ParseAlgorithm parses a command-line algorithm specifier: "sha256d",
// "scrypt", or "scrypt:N" where N is a power of two >= 2.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch {
	case s == SHA256d.Name:
		return SHA256d, nil
	case s == "scrypt":
		return Scrypt, nil
	case strings.HasPrefix(s, "scrypt:"):
		nStr := strings.TrimPrefix(s, "scrypt:")
		n, err := strconv.Atoi(nStr)
		if err != nil {
			return Algorithm{}, fmt.Errorf("invalid scrypt N %q: %w", nStr, err)
		}
		if n < 2 || n&(n-1) != 0 {
			return Algorithm{}, fmt.Errorf("scrypt N must be a power of two >= 2, got %d", n)
		}
		return NewScrypt(n), nil
	}
	return Algorithm{}, errors.New("unknown algorithm: " + s)
}

// Hash computes the proof-of-work digest of data under algorithm a.
func (a Algorithm) Hash(data []byte) [32]byte {
	if a.IsScrypt() {
		return scryptHash(data, a.N)
	}
	return SHA256dHash(data)
}

// SHA256dHash is double-SHA-256, the Bitcoin-family proof-of-work hash.
func SHA256dHash(data []byte) [32]byte {
	h1 := sha256.Sum256(data)
	return sha256.Sum256(h1[:])
}

// scryptHash is the Litecoin-family proof-of-work hash: scrypt(data, data,
// N, 1, 1, 32). The salt is the same bytes as the input, per BIP-coin
// convention (https://litecoin.info/index.php/Scrypt).
func scryptHash(data []byte, n int) [32]byte {
	out, err := scrypt.Key(data, data, n, 1, 1, 32)
	if err != nil {
		// Only returns an error for invalid N/r/p or output length, all of
		// which are fixed and validated at config time.
		panic(err)
	}
	var h [32]byte
	copy(h[:], out)
	return h
}
