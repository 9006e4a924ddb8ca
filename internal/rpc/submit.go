package rpc

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/boomstarternetwork/gominer/internal/work"
)

// rewriteHeaderBigEndian serializes w's 80-byte header with every 32-bit
// word written big-endian, the wire form submitblock expects, per spec.md
// §4.4.
func rewriteHeaderBigEndian(w *work.Work) string {
	b := make([]byte, 80)
	for i := 0; i < 20; i++ {
		binary.BigEndian.PutUint32(b[4*i:4*i+4], w.Data[i])
	}
	return hex.EncodeToString(b)
}
