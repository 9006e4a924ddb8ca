package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/boomstarternetwork/gominer/internal/work"
)

// getworkResult is the decoded body of a bare `getwork` response: a
// 128-byte header+padding blob and a 32-byte target, both already in the
// word order the miner hashes directly -- unlike GBT, getwork needs no
// byteswapping, per the original get_upstream_work/work_decode pairing.
type getworkResult struct {
	Data   string `json:"data"`
	Target string `json:"target"`
}

// decodeGetWork turns a getworkResult into a Work ready for the inner scan.
func decodeGetWork(r getworkResult) (*work.Work, error) {
	dataBytes, err := hex.DecodeString(r.Data)
	if err != nil || len(dataBytes) != 128 {
		return nil, fmt.Errorf("rpc: getwork data must be 128 bytes, got %d (%v)", len(dataBytes), err)
	}
	targetBytes, err := hex.DecodeString(r.Target)
	if err != nil || len(targetBytes) != 32 {
		return nil, fmt.Errorf("rpc: getwork target must be 32 bytes, got %d (%v)", len(targetBytes), err)
	}

	w := &work.Work{}
	for i := 0; i < 32; i++ {
		w.Data[i] = binary.LittleEndian.Uint32(dataBytes[4*i : 4*i+4])
	}
	for i := 0; i < 8; i++ {
		w.Target[i] = binary.LittleEndian.Uint32(targetBytes[4*i : 4*i+4])
	}
	return w, nil
}

// encodeGetWorkSubmission serializes w's 128-byte data blob back to hex for
// a `getwork` submission call.
func encodeGetWorkSubmission(w *work.Work) string {
	b := make([]byte, 128)
	for i := 0; i < 32; i++ {
		binary.LittleEndian.PutUint32(b[4*i:4*i+4], w.Data[i])
	}
	return hex.EncodeToString(b)
}
