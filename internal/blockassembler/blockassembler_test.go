package blockassembler

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/boomstarternetwork/gominer/internal/algo"
)

func TestEncodeDecodeHeightRoundTrip(t *testing.T) {
	heights := []uint32{17, 128, 235759, 1, 700000, 0x7fffffff}
	for _, h := range heights {
		push := encodeHeight(h)
		got, err := decodeHeight(push)
		if err != nil {
			t.Fatalf("decodeHeight(%d): %v", h, err)
		}
		if got != h {
			t.Errorf("round trip of height %d produced %d", h, got)
		}
	}
}

func TestEncodeHeightKnownVector(t *testing.T) {
	// Lifted from the teacher's Test_makeCoinBaseTx coinbaseScript
	// "03ef98030400001059124d696e656420627920425443204775696c64...": a
	// 3-byte push "ef9803" little-endian encodes height 0x0398ef.
	got := encodeHeight(0x0398ef)
	want := []byte{0x03, 0xef, 0x98, 0x03}
	if hex.EncodeToString(got) != hex.EncodeToString(want) {
		t.Errorf("encodeHeight(0x0398ef) = %x, want %x", got, want)
	}
}

func TestEncodeHeightSignPadding(t *testing.T) {
	// 128 (0x80) has its top bit set in a single byte, so BIP-34 requires
	// a sign-padding zero byte to keep the push unambiguously positive.
	got := encodeHeight(128)
	want := []byte{0x02, 0x80, 0x00}
	if hex.EncodeToString(got) != hex.EncodeToString(want) {
		t.Errorf("encodeHeight(128) = %x, want %x", got, want)
	}
}

func TestMerkleRootMatchesKnownVectors(t *testing.T) {
	tests := []struct {
		name      string
		hexHashes []string
		want      string
	}{
		{
			name: "even hashes count",
			hexHashes: []string{
				"decb39cfcc1d6b8e0155d14b8923dfc1b6cfe65bcc19a9f9e136b7a65c2ffb9d",
				"3e52c0e53c2c12b8d51cae5700273273f3968e7d9edc2c6e1093a74ba6fe7865",
				"0f7035239f5bd6759b5bfdf8f7cbfce0e7b382e105fa55af20a3994f439524c0",
				"d07fb5461d4a455270c06a6370708f6282256c2608a1937e54cd5db1f272657d",
			},
			want: "07ecfbfa6214b1261daf058dbd226091d26acf8511c88f21b660a901cbc8179b",
		},
		{
			name: "odd hashes count",
			hexHashes: []string{
				"1f4f9136b20069249115d55c843ec18acc1889b862cde134386e14396de7bdb3",
				"d731233d670af128e0a77dae8aa2b998f7515d0febe9aeb3ddfca0fff256e5b1",
				"874afe1c0e0dd76fcd4cd4f4a923a803d119e8612c70e6599c4e9cd98bb54084",
			},
			want: "1489b66849671c4758d2b90d411e64b8e7ea5681ace1f60b9e053b94c7aef231",
		},
		{
			name: "single transaction",
			hexHashes: []string{
				"aef812ae5d301be4bad82cd1881a7e0d735e081cb91f725c1fbc1ece83aba23c",
			},
			want: "aef812ae5d301be4bad82cd1881a7e0d735e081cb91f725c1fbc1ece83aba23c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var leaves [][]byte
			for _, hx := range tt.hexHashes {
				b, err := hex.DecodeString(hx)
				if err != nil {
					t.Fatalf("bad test vector: %v", err)
				}
				leaves = append(leaves, reverseBytesCopy(b))
			}
			root := merkleRoot(leaves)
			got := hex.EncodeToString(reverseBytesCopy(root[:]))
			if got != tt.want {
				t.Errorf("merkleRoot() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestWitnessCommitment is the boundary scenario named S2 in spec.md §8:
// three transactions whose witness hashes are h1, h2, h3 give the witness
// root SHA256d(SHA256d(0||h1) || SHA256d(h2||h3)) after endian-reversing
// each hash; the commitment is SHA256d of that root followed by a 32-byte
// zero reserved value, and the coinbase's second output must carry it
// behind the 6a24aa21a9ed script prefix.
func TestWitnessCommitment(t *testing.T) {
	h1 := strings.Repeat("11", 32)
	h2 := strings.Repeat("22", 32)
	h3 := strings.Repeat("33", 32)

	txs := []Transaction{{Hash: h1}, {Hash: h2}, {Hash: h3}}

	got, err := witnessCommitment(txs)
	if err != nil {
		t.Fatalf("witnessCommitment: %v", err)
	}

	rev := func(hx string) []byte {
		b, _ := hex.DecodeString(hx)
		return reverseBytesCopy(b)
	}
	var zero [32]byte
	left := algo.SHA256dHash(append(append([]byte{}, zero[:]...), rev(h1)...))
	right := algo.SHA256dHash(append(append([]byte{}, rev(h2)...), rev(h3)...))
	root := algo.SHA256dHash(append(append([]byte{}, left[:]...), right[:]...))
	var reserved [32]byte
	want := algo.SHA256dHash(append(append([]byte{}, root[:]...), reserved[:]...))

	if got != want {
		t.Errorf("witnessCommitment = %x, want %x", got, want)
	}

	coinbase := buildCoinbase(coinbaseOptions{
		Height:       100,
		Value:        5000000000,
		PayoutScript: []byte{0x76, 0xa9, 0x14},
		SegWit:       true,
		WitnessRoot:  got,
	})
	script := coinbaseWitnessScript(t, coinbase)
	wantPrefix := []byte{0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed}
	if hex.EncodeToString(script[:6]) != hex.EncodeToString(wantPrefix) {
		t.Errorf("witness output script prefix = %x, want %x", script[:6], wantPrefix)
	}
	if hex.EncodeToString(script[6:]) != hex.EncodeToString(got[:]) {
		t.Errorf("witness output script root = %x, want %x", script[6:], got)
	}
}

// coinbaseWitnessScript extracts the second output's script from a
// serialized coinbase built with a 3-byte (OP_DUP OP_HASH160 <len>) first
// output script, as constructed in this test.
func coinbaseWitnessScript(t *testing.T, coinbase []byte) []byte {
	t.Helper()
	// version(4) + incount(1) + prevout(36) + scriptsig-varint(1, height=100 -> 2 bytes push) + scriptsig + sequence(4) + outcount(1)
	off := 4 + 1 + 36
	scriptSigLen := int(coinbase[off])
	off += 1 + scriptSigLen + 4 // scriptsig len byte + scriptsig + sequence
	off += 1                   // outcount
	// output 0: value(8) + scriptlen varint + script(3 bytes in this test)
	off += 8
	out0Len := int(coinbase[off])
	off += 1 + out0Len
	// output 1: value(8) + scriptlen varint + script
	off += 8
	out1Len := int(coinbase[off])
	off += 1
	return coinbase[off : off+out1Len]
}

func TestParseTargetDifficultyOne(t *testing.T) {
	// The classic difficulty-1 SHA-256d target: 0x00000000FFFF0000...0000.
	hexTarget := "00000000ffff0000" + strings.Repeat("00", 24)
	target, err := parseTarget(hexTarget)
	if err != nil {
		t.Fatalf("parseTarget: %v", err)
	}
	if target[7] != 0 {
		t.Errorf("target[7] = %#x, want 0", target[7])
	}
	if target[6] != 0xffff0000 {
		t.Errorf("target[6] = %#x, want 0xffff0000", target[6])
	}
	for i := 0; i < 6; i++ {
		if target[i] != 0 {
			t.Errorf("target[%d] = %#x, want 0", i, target[i])
		}
	}
}
