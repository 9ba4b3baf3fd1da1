package kdf

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}

	k1, err := Derive([]byte("password"), salt)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k2, err := Derive([]byte("password"), salt)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if string(k1) != string(k2) {
		t.Error("Derive should be deterministic for a given (password, salt)")
	}
	if len(k1) != KeySize {
		t.Errorf("Derive key length = %d, want %d", len(k1), KeySize)
	}
}

func TestDeriveDifferentSaltsDiffer(t *testing.T) {
	salt1, _ := RandomSalt()
	salt2, _ := RandomSalt()

	k1, err := Derive([]byte("password"), salt1)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k2, err := Derive([]byte("password"), salt2)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if string(k1) == string(k2) {
		t.Error("different salts should produce different keys")
	}
}

func TestDeriveRejectsWrongSaltSize(t *testing.T) {
	if _, err := Derive([]byte("password"), []byte("short")); err == nil {
		t.Error("Derive should reject a salt that is not SaltSize bytes")
	}
}

func TestRandomSaltLength(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	if len(salt) != SaltSize {
		t.Errorf("RandomSalt length = %d, want %d", len(salt), SaltSize)
	}
}
