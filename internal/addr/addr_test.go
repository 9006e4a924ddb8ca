package addr

import (
	"encoding/hex"
	"testing"
)

// Known-answer vector lifted from the teacher's Test_makeCoinBaseTx: the
// pubkeyScript embedded in that test's expected coinbase hex is
// 76a91427a1f12771de5cc3b73941664b2537c15316be4388ac.
func TestHash160(t *testing.T) {
	got, err := Hash160("14cZMQk89mRYQkDEj8Rn25AnGoBi5H6uer")
	if err != nil {
		t.Fatalf("Hash160: %v", err)
	}
	want := "27a1f12771de5cc3b73941664b2537c15316be43"
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("Hash160 = %x, want %s", got, want)
	}
}

func TestPayToPubKeyHashScript(t *testing.T) {
	got, err := PayToPubKeyHashScript("14cZMQk89mRYQkDEj8Rn25AnGoBi5H6uer")
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}
	want := "76a91427a1f12771de5cc3b73941664b2537c15316be4388ac"
	if hex.EncodeToString(got) != want {
		t.Errorf("PayToPubKeyHashScript = %x, want %s", got, want)
	}
}

func TestHash160InvalidAddress(t *testing.T) {
	if _, err := Hash160("not-a-valid-address"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}
