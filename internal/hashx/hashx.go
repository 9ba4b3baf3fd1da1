// Package hashx wraps the SHA3-256 digest used for whole-file integrity and
// per-block content identification.
package hashx

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Size is the digest length in bytes.
const Size = 32

// Digest returns the SHA3-256 digest of b.
func Digest(b []byte) [Size]byte {
	return sha3.Sum256(b)
}

// DigestHex returns the SHA3-256 digest of b as a lowercase hex string,
// the encoding Metadata.hash is serialized with.
func DigestHex(b []byte) string {
	d := Digest(b)
	return hex.EncodeToString(d[:])
}

// Verify reports whether b hashes to the given hex-encoded digest.
func Verify(b []byte, hexDigest string) bool {
	return DigestHex(b) == hexDigest
}
