// Package kdf derives per-block encryption keys from a password and salt
// using Argon2id. Each SHUMZU block carries its own salt, so every block's
// key is derived independently — this package has no notion of session or
// stream state.
package kdf

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/shumzu/shumzu/internal/errs"
)

// Argon2id parameters. CRITICAL: these MUST NOT change — existing
// keymasters would no longer derive the same key from the same password
// and salt.
const (
	TimeCost    = 2
	MemoryCost  = 102400 // KiB
	Parallelism = 8
	KeySize     = 32
	SaltSize    = 16
)

// RandomSalt draws a cryptographically secure 16-byte salt.
func RandomSalt() ([]byte, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrKeyDerivation, err), "crypto/rand")
	}
	return b, nil
}

// Derive computes a 32-byte key from password and salt using Argon2id with
// the parameters above.
func Derive(password, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, errs.Wrap(fmt.Errorf("%w: salt must be %d bytes, got %d", errs.ErrKeyDerivation, SaltSize, len(salt)), "argon2id")
	}

	key := argon2.IDKey(password, salt, TimeCost, MemoryCost, Parallelism, KeySize)

	// Sanity check: key should not be all zeros.
	if bytes.Equal(key, make([]byte, KeySize)) {
		return nil, errs.Wrap(fmt.Errorf("%w: produced zero key", errs.ErrKeyDerivation), "argon2id")
	}

	return key, nil
}
