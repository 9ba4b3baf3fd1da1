package crypto

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	password := []byte("correct horse battery staple")
	plaintext := []byte("hello, shumzu")

	blob, err := Seal(password, 3, plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := Open(password, 3, blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open = %q, want %q", got, plaintext)
	}
}

func TestOpenWrongPasswordFails(t *testing.T) {
	blob, err := Seal([]byte("right"), 0, []byte("secret data"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open([]byte("wrong"), 0, blob); err == nil {
		t.Fatal("Open with wrong password should fail")
	}
}

func TestOpenWrongIndexFails(t *testing.T) {
	// Binding index as AAD means a blob sealed for index 1 must not open
	// under index 2, even with the correct password - this is the
	// reordering protection the envelope format itself doesn't provide.
	password := []byte("pw")
	blob, err := Seal(password, 1, []byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open(password, 2, blob); err == nil {
		t.Fatal("Open under a different index should fail authentication")
	}
}

func TestOpenTruncatedBlobFails(t *testing.T) {
	blob, err := Seal([]byte("pw"), 0, []byte("x"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open([]byte("pw"), 0, blob[:10]); err == nil {
		t.Fatal("Open on truncated blob should fail")
	}
}

func TestOpenCorruptedTagFails(t *testing.T) {
	blob, err := Seal([]byte("pw"), 0, []byte("payload data"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	blob[headerSize] ^= 0xFF // flip a bit in the tag

	if _, err := Open([]byte("pw"), 0, blob); err == nil {
		t.Fatal("Open with corrupted tag should fail")
	}
}

func TestSealEachBlockGetsIndependentSalt(t *testing.T) {
	password := []byte("pw")
	blobA, err := Seal(password, 0, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	blobB, err := Seal(password, 0, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if bytes.Equal(blobA, blobB) {
		t.Error("two seals of the same plaintext/index should differ (random salt+nonce)")
	}
}

func TestEmptyPlaintext(t *testing.T) {
	blob, err := Seal([]byte("pw"), 0, nil)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := Open([]byte("pw"), 0, blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Open = %q, want empty", got)
	}
}
