package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/kdf"
)

// Nonce and tag sizes for AES-256-GCM.
const (
	NonceSize = 12
	TagSize   = 16
)

// Blob layout, in order: salt[16] ‖ nonce[12] ‖ tag[16] ‖ ciphertext[*].
// This is the opaque payload carried in Envelope.Data when a password is
// set.
const headerSize = kdf.SaltSize + NonceSize

// Seal derives a per-block key from password and a freshly drawn salt,
// then seals plaintext under AES-256-GCM with the block index bound as
// associated data. Binding the index closes the reordering gap noted in
// the envelope format: a swapped index can no longer pass authentication
// under a different block's tag.
func Seal(password []byte, index int, plaintext []byte) ([]byte, error) {
	salt, err := kdf.RandomSalt()
	if err != nil {
		return nil, err
	}

	key, err := kdf.Derive(password, salt)
	if err != nil {
		return nil, err
	}
	km := NewKeyMaterial(key)
	defer km.Close()
	SecureZero(key)

	block, err := aes.NewCipher(km.Bytes())
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrEncryption, err), "aes")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrEncryption, err), "gcm")
	}

	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	aad := indexAAD(index)
	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	// sealed = ciphertext ‖ tag (stdlib appends the tag at the end); the
	// wire layout wants salt ‖ nonce ‖ tag ‖ ciphertext, so split and
	// reorder.
	ctLen := len(sealed) - TagSize
	ciphertext, tag := sealed[:ctLen], sealed[ctLen:]

	blob := make([]byte, 0, headerSize+TagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Open parses a salt‖nonce‖tag‖ciphertext blob and authenticates/decrypts
// it with the key derived from password and the embedded salt, binding the
// same index as associated data Seal used.
func Open(password []byte, index int, blob []byte) ([]byte, error) {
	if len(blob) < headerSize+TagSize {
		return nil, errs.Wrap(fmt.Errorf("%w: blob too short (%d bytes)", errs.ErrDecryption, len(blob)), "cipher")
	}

	salt := blob[:kdf.SaltSize]
	nonce := blob[kdf.SaltSize:headerSize]
	tagAndCiphertext := blob[headerSize:]

	key, err := kdf.Derive(password, salt)
	if err != nil {
		return nil, err
	}
	km := NewKeyMaterial(key)
	defer km.Close()
	SecureZero(key)

	block, err := aes.NewCipher(km.Bytes())
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrDecryption, err), "aes")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrDecryption, err), "gcm")
	}

	tag := tagAndCiphertext[:TagSize]
	ciphertext := tagAndCiphertext[TagSize:]
	// stdlib expects ciphertext ‖ tag; the wire layout stores tag before
	// ciphertext, so reassemble in the order GCM.Open wants.
	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	aad := indexAAD(index)
	plaintext, err := gcm.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: authentication failed", errs.ErrDecryption), "gcm")
	}
	return plaintext, nil
}

// indexAAD encodes a block index as 4-byte big-endian associated data.
func indexAAD(index int) []byte {
	aad := make([]byte, 4)
	binary.BigEndian.PutUint32(aad, uint32(index))
	return aad
}

// RandomBytes draws n cryptographically secure random bytes, with a
// sanity check against a degenerate all-zero draw.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrEncryption, err), "crypto/rand")
	}

	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, errs.Wrap(fmt.Errorf("%w: crypto/rand produced zero bytes", errs.ErrEncryption), "crypto/rand")
	}

	return b, nil
}
