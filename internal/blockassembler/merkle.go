package blockassembler

import (
	"encoding/hex"

	"github.com/boomstarternetwork/gominer/internal/algo"
)

// merkleRoot folds leaves bottom-up, duplicating the last node whenever a
// level has an odd count, until a single root remains. Both the
// transaction Merkle tree and the SegWit witness-commitment tree use this
// fold. Per spec.md §4.1 step 6, the fold is always double-SHA-256,
// regardless of the miner's configured proof-of-work algorithm -- the
// merkle root and witness commitment are consensus fields, not PoW inputs.
func merkleRoot(leaves [][]byte) [32]byte {
	level := leaves
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			concat := make([]byte, 0, len(level[i])+len(level[i+1]))
			concat = append(concat, level[i]...)
			concat = append(concat, level[i+1]...)
			h := algo.SHA256dHash(concat)
			next = append(next, h[:])
		}
		level = next
	}
	var root [32]byte
	copy(root[:], level[0])
	return root
}

func reverseBytesCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// buildTxMerkleLeaves computes the leaf hashes for the transaction Merkle
// tree: leaf 0 is the coinbase hash, leaf i+1 is either the endian-reversed
// SegWit txid (when SegWit is active, so the tree roots over the
// non-witness transaction IDs) or the plain tx hash otherwise. Always
// double-SHA-256, per spec.md §4.1 step 6.
func buildTxMerkleLeaves(coinbase []byte, txs []Transaction, segWit bool) ([][]byte, error) {
	leaves := make([][]byte, 0, len(txs)+1)

	cbHash := algo.SHA256dHash(coinbase)
	leaves = append(leaves, append([]byte{}, cbHash[:]...))

	for _, tx := range txs {
		if segWit {
			idHex := tx.TxID
			if idHex == "" {
				idHex = tx.Hash
			}
			b, err := hex.DecodeString(idHex)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, reverseBytesCopy(b))
		} else {
			raw, err := hex.DecodeString(tx.Data)
			if err != nil {
				return nil, err
			}
			h := algo.SHA256dHash(raw)
			leaves = append(leaves, append([]byte{}, h[:]...))
		}
	}

	return leaves, nil
}

// witnessCommitment computes the SegWit witness root as specified in
// spec.md §4.1 step 4: a Merkle tree whose leaf 0 is 32 zero bytes (the
// coinbase's witness, which is always a single zero witness), followed by
// each other transaction's endian-reversed witness hash ("hash" field),
// folded with double-hash and duplicate-last-on-odd, then double-hashed
// together with a 32-byte zero witness reserved value. Always
// double-SHA-256, per spec.md §4.1 step 4, independent of the mining
// algorithm.
func witnessCommitment(txs []Transaction) ([32]byte, error) {
	leaves := make([][]byte, 0, len(txs)+1)
	leaves = append(leaves, make([]byte, 32))

	for _, tx := range txs {
		b, err := hex.DecodeString(tx.Hash)
		if err != nil {
			return [32]byte{}, err
		}
		leaves = append(leaves, reverseBytesCopy(b))
	}

	root := merkleRoot(leaves)

	var reserved [32]byte
	input := make([]byte, 0, 64)
	input = append(input, root[:]...)
	input = append(input, reserved[:]...)
	return algo.SHA256dHash(input), nil
}
