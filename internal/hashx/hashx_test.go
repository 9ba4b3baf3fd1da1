package hashx

import "testing"

func TestDigestHexLength(t *testing.T) {
	h := DigestHex([]byte("hello"))
	if len(h) != Size*2 {
		t.Errorf("DigestHex length = %d, want %d", len(h), Size*2)
	}
}

func TestDigestDeterministic(t *testing.T) {
	a := DigestHex([]byte("shumzu"))
	b := DigestHex([]byte("shumzu"))
	if a != b {
		t.Error("DigestHex should be deterministic")
	}
}

func TestVerify(t *testing.T) {
	b := []byte("the quick brown fox")
	h := DigestHex(b)

	if !Verify(b, h) {
		t.Error("Verify should accept the correct digest")
	}
	if Verify(b, "deadbeef") {
		t.Error("Verify should reject an incorrect digest")
	}
}

func TestDigestDiffersOnChange(t *testing.T) {
	a := DigestHex([]byte("a"))
	b := DigestHex([]byte("b"))
	if a == b {
		t.Error("different inputs should hash differently")
	}
}
