// Package crypto provides the AEAD primitive SHUMZU seals and opens each
// block's envelope payload with.
package crypto

import "crypto/subtle"

// SecureZero overwrites a byte slice with zeros to prevent sensitive data
// from persisting in memory. Due to Go's garbage collector and compiler
// optimizations this cannot guarantee complete erasure, but it reduces the
// window during which derived keys are recoverable from RAM.
//
// Uses subtle.ConstantTimeCopy so the zeroing survives compiler
// dead-store elimination.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// SecureZeroMultiple zeros several byte slices in one call.
func SecureZeroMultiple(slices ...[]byte) {
	for _, s := range slices {
		SecureZero(s)
	}
}

// KeyMaterial wraps a derived key with automatic zeroing on Close.
type KeyMaterial struct {
	data   []byte
	closed bool
}

// NewKeyMaterial copies data into an owned, zeroable buffer.
func NewKeyMaterial(data []byte) *KeyMaterial {
	if data == nil {
		return &KeyMaterial{}
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &KeyMaterial{data: copied}
}

// Bytes returns the key data, or nil once Close has been called.
func (km *KeyMaterial) Bytes() []byte {
	if km.closed {
		return nil
	}
	return km.data
}

// Close securely zeros the key data. Idempotent.
func (km *KeyMaterial) Close() {
	if km.closed || km.data == nil {
		return
	}
	SecureZero(km.data)
	km.data = nil
	km.closed = true
}
