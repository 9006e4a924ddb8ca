package blockassembler

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/boomstarternetwork/gominer/internal/addr"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// ErrNoPayoutAddress is the policy error spec.md §7 names: a GBT template
// cannot be assembled into a coinbase-paying block without an operator
// payout address.
var ErrNoPayoutAddress = errors.New("blockassembler: no payout address configured")

// Config carries the operator-supplied inputs the block assembler cannot
// derive from the template itself. The merkle/coinbase/witness-commitment
// hashing in this package is always double-SHA-256 (spec.md §4.1 step 6),
// independent of the miner's configured proof-of-work algorithm, so no
// algorithm selector belongs here -- see internal/miner for where that's
// used instead.
type Config struct {
	PayoutAddress string
	CoinbaseSig   string
}

// Result bundles the assembled Work with the serialized transaction list
// needed for submitblock and the long-poll bootstrap hint.
type Result struct {
	Work *work.Work
	// Txs is the hex-serialized varint tx-count, coinbase, and other
	// transactions, ready to append to the header hex for submission.
	Txs string
	// LongPollURI is the template's longpollid/longpolluri, when present,
	// for bootstrapping the long-poll task.
	LongPollURI string
	LongPollID  string
}

// Assemble implements spec.md §4.1: it builds (or extends) the coinbase,
// folds the Merkle tree, packs the header, and parses the target.
func Assemble(tpl *Template, cfg Config) (*Result, error) {
	if tpl.CoinbaseTxn == nil && cfg.PayoutAddress == "" {
		return nil, ErrNoPayoutAddress
	}

	segWit := tpl.SegWitActive()

	coinbase, err := buildCoinbaseForTemplate(tpl, cfg, segWit)
	if err != nil {
		return nil, err
	}

	leaves, err := buildTxMerkleLeaves(coinbase, tpl.Transactions, segWit)
	if err != nil {
		return nil, fmt.Errorf("blockassembler: merkle leaves: %w", err)
	}
	root := merkleRoot(leaves)

	prevHash, err := decodeFixed32(tpl.PreviousBlockHash)
	if err != nil {
		return nil, fmt.Errorf("blockassembler: previousblockhash: %w", err)
	}

	w := &work.Work{Height: tpl.Height, WorkID: tpl.WorkID}
	if err := assembleHeader(w, tpl.Version, prevHash, root, tpl.CurTime, tpl.Bits); err != nil {
		return nil, err
	}

	target, err := parseTarget(tpl.Target)
	if err != nil {
		return nil, err
	}
	w.Target = target

	txsHex := serializeTxs(coinbase, tpl.Transactions, tpl.SubmitCoinbaseOnly())
	w.Txs = txsHex

	return &Result{
		Work:        w,
		Txs:         txsHex,
		LongPollURI: tpl.LongPollURI,
		LongPollID:  tpl.LongPollID,
	}, nil
}

func buildCoinbaseForTemplate(tpl *Template, cfg Config, segWit bool) ([]byte, error) {
	if tpl.CoinbaseTxn != nil {
		raw, err := hex.DecodeString(tpl.CoinbaseTxn.Data)
		if err != nil {
			return nil, fmt.Errorf("blockassembler: coinbasetxn: %w", err)
		}
		if tpl.CoinbaseAppendAllowed() {
			raw, err = appendSigToRawCoinbase(raw, cfg.CoinbaseSig, tpl.CoinbaseAux)
			if err != nil {
				return nil, fmt.Errorf("blockassembler: appending coinbase sig: %w", err)
			}
		}
		return raw, nil
	}

	payoutScript, err := addr.PayToPubKeyHashScript(cfg.PayoutAddress)
	if err != nil {
		return nil, fmt.Errorf("blockassembler: payout address: %w", err)
	}

	opts := coinbaseOptions{
		Height:       tpl.Height,
		Value:        tpl.CoinbaseValue,
		PayoutScript: payoutScript,
		Sig:          cfg.CoinbaseSig,
		Aux:          tpl.CoinbaseAux,
		SegWit:       segWit,
	}

	if segWit {
		root, err := witnessCommitment(tpl.Transactions)
		if err != nil {
			return nil, fmt.Errorf("blockassembler: witness commitment: %w", err)
		}
		opts.WitnessRoot = root
	}

	return buildCoinbase(opts), nil
}

func decodeFixed32(hexStr string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// serializeTxs hex-encodes the varint tx count, the coinbase, and (unless
// the template says only the coinbase need be submitted) every other
// transaction's raw data.
func serializeTxs(coinbase []byte, txs []Transaction, coinbaseOnly bool) string {
	count := uint64(1)
	if !coinbaseOnly {
		count += uint64(len(txs))
	}

	out := putVarInt(count)
	out = append(out, coinbase...)

	if !coinbaseOnly {
		for _, tx := range txs {
			raw, err := hex.DecodeString(tx.Data)
			if err != nil {
				continue
			}
			out = append(out, raw...)
		}
	}

	return hex.EncodeToString(out)
}
