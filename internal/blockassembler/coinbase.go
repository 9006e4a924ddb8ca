package blockassembler

import (
	"bytes"
	"encoding/hex"
)

// maxCoinbaseScriptSigLen is Bitcoin consensus's cap on coinbase scriptSig
// size.
const maxCoinbaseScriptSigLen = 100

// opPushData1 pushes the following byte as a length for a 76..255 byte
// push, the threshold scriptSig appends must respect.
const opPushData1 = 0x4c

// encodeHeight returns the BIP-34 minimal-push encoding of a block height:
// a length-prefixed little-endian integer, sign-padded with a trailing
// zero byte when the top byte's high bit is set so the value cannot be
// misread as negative by a script interpreter.
func encodeHeight(height uint32) []byte {
	var data []byte
	n := height
	for n > 0 {
		data = append(data, byte(n&0xff))
		n >>= 8
	}
	if len(data) == 0 {
		data = []byte{0}
	}
	if data[len(data)-1]&0x80 != 0 {
		data = append(data, 0x00)
	}
	push := make([]byte, 0, len(data)+1)
	push = append(push, byte(len(data)))
	push = append(push, data...)
	return push
}

// decodeHeight inverts encodeHeight, reading a minimal-push-encoded height
// back from the front of a scriptSig.
func decodeHeight(push []byte) (uint32, error) {
	if len(push) < 1 {
		return 0, errShortRead
	}
	n := int(push[0])
	if len(push) < 1+n {
		return 0, errShortRead
	}
	data := push[1 : 1+n]
	var height uint32
	for i := len(data) - 1; i >= 0; i-- {
		height = height<<8 | uint32(data[i])
	}
	return height, nil
}

// appendCoinbaseSig appends the operator's coinbase_sig string plus the
// hex-decoded coinbaseaux values to scriptSig, respecting the 100-byte
// scriptSig cap and choosing OP_PUSHDATA1 once the push is 76 bytes or
// larger.
func appendCoinbaseSig(scriptSig []byte, sig string, aux map[string]string) []byte {
	extra := []byte(sig)
	for _, v := range aux {
		b, err := hex.DecodeString(v)
		if err != nil {
			continue
		}
		extra = append(extra, b...)
	}
	if len(extra) == 0 {
		return scriptSig
	}

	room := maxCoinbaseScriptSigLen - len(scriptSig)
	if room <= 0 {
		return scriptSig
	}

	overhead := 1
	if len(extra) >= 76 {
		overhead = 2
	}
	if len(extra)+overhead > room {
		avail := room - overhead
		if avail <= 0 {
			return scriptSig
		}
		extra = extra[:avail]
		overhead = 1
		if len(extra) >= 76 {
			overhead = 2
		}
	}

	push := make([]byte, 0, len(extra)+overhead)
	if len(extra) >= 76 {
		push = append(push, opPushData1, byte(len(extra)))
	} else {
		push = append(push, byte(len(extra)))
	}
	push = append(push, extra...)
	return append(scriptSig, push...)
}

// appendSigToRawCoinbase parses a template-supplied raw coinbase
// transaction, appends the operator signature to its single input's
// scriptSig, and re-serializes it. Used when the pool supplies "coinbasetxn"
// but still sets the "coinbase/append" mutable flag.
func appendSigToRawCoinbase(raw []byte, sig string, aux map[string]string) ([]byte, error) {
	r := bytes.NewReader(raw)

	version, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}
	inCount, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if inCount != 1 {
		return raw, nil // not a single-input coinbase; leave untouched
	}
	prevout, err := readFull(r, 36)
	if err != nil {
		return nil, err
	}
	scriptLen, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	script, err := readFull(r, int(scriptLen))
	if err != nil {
		return nil, err
	}
	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil && r.Len() > 0 {
		return nil, err
	}

	newScript := appendCoinbaseSig(script, sig, aux)

	out := make([]byte, 0, len(raw)+len(newScript)-len(script))
	out = append(out, version...)
	out = append(out, putVarInt(1)...)
	out = append(out, prevout...)
	out = append(out, putVarInt(uint64(len(newScript)))...)
	out = append(out, newScript...)
	out = append(out, rest...)
	return out, nil
}

// coinbaseOptions configures buildCoinbase.
type coinbaseOptions struct {
	Height       uint32
	Value        uint64
	PayoutScript []byte
	Sig          string
	Aux          map[string]string
	SegWit       bool
	WitnessRoot  [32]byte
}

func leUint32(x uint32) []byte {
	b := make([]byte, 4)
	b[0] = byte(x)
	b[1] = byte(x >> 8)
	b[2] = byte(x >> 16)
	b[3] = byte(x >> 24)
	return b
}

func leUint64(x uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return b
}

// buildCoinbase assembles a fresh coinbase transaction: BIP-34 height push
// (optionally extended with the operator signature), a payout output, and
// for SegWit templates a second zero-value witness-commitment output.
func buildCoinbase(opts coinbaseOptions) []byte {
	buf := make([]byte, 0, 200)

	buf = append(buf, leUint32(1)...) // version

	buf = append(buf, 0x01) // input count

	buf = append(buf, make([]byte, 32)...) // prevout hash: null
	buf = append(buf, 0xff, 0xff, 0xff, 0xff)

	scriptSig := encodeHeight(opts.Height)
	if opts.Sig != "" || len(opts.Aux) > 0 {
		scriptSig = appendCoinbaseSig(scriptSig, opts.Sig, opts.Aux)
	}
	buf = append(buf, putVarInt(uint64(len(scriptSig)))...)
	buf = append(buf, scriptSig...)

	buf = append(buf, 0xff, 0xff, 0xff, 0xff) // sequence

	outCount := byte(1)
	if opts.SegWit {
		outCount = 2
	}
	buf = append(buf, outCount)

	buf = append(buf, leUint64(opts.Value)...)
	buf = append(buf, putVarInt(uint64(len(opts.PayoutScript)))...)
	buf = append(buf, opts.PayoutScript...)

	if opts.SegWit {
		buf = append(buf, leUint64(0)...)
		script := make([]byte, 0, 38)
		script = append(script, 0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed)
		script = append(script, opts.WitnessRoot[:]...)
		buf = append(buf, putVarInt(uint64(len(script)))...)
		buf = append(buf, script...)
	}

	buf = append(buf, leUint32(0)...) // locktime

	return buf
}
