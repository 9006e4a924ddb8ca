package algo

import (
	"encoding/hex"
	"fmt"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"sha256d", SHA256d, false},
		{"scrypt", Scrypt, false},
		{"scrypt:2048", NewScrypt(2048), false},
		{"scrypt:3", Algorithm{}, true},
		{"scrypt:0", Algorithm{}, true},
		{"x11", Algorithm{}, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("_%d", i), func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSHA256dHash(t *testing.T) {
	// sha256(sha256("")), a standard known-answer vector.
	got := SHA256dHash([]byte{})
	want := "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"[:64]
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("SHA256dHash(\"\") = %x, want %s", got, want)
	}
}

func TestAlgorithmStringRoundTrip(t *testing.T) {
	for _, s := range []string{"sha256d", "scrypt", "scrypt:2048"} {
		a, err := ParseAlgorithm(s)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", s, err)
		}
		if a.String() != s {
			t.Errorf("String() = %q, want %q", a.String(), s)
		}
	}
}
