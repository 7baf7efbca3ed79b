// Package nukicrypto provides the cryptographic primitives the Nuki BLE
// protocol needs: X25519 keypairs, crypto_box_beforenm-style shared-key
// derivation, XSalsa20-Poly1305 secretbox sealing, HMAC-SHA256, and
// CSPRNG nonces.
package nukicrypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACLen is the HMAC-SHA256 output length in bytes.
const HMACLen = 32

// HMACSHA256 computes H_k(message) = HMAC-SHA256(sharedKey, message), the
// authenticator construction used throughout the pairing handshake.
func HMACSHA256(sharedKey, message []byte) [HMACLen]byte {
	h := hmac.New(sha256.New, sharedKey)
	h.Write(message)
	var out [HMACLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA256Slice is a convenience wrapper returning a slice rather than a
// fixed-size array.
func HMACSHA256Slice(sharedKey, message []byte) []byte {
	h := hmac.New(sha256.New, sharedKey)
	h.Write(message)
	return h.Sum(nil)
}

// HMACEqual compares two MACs in constant time. Always use this instead of
// bytes.Equal when checking a lock-supplied authenticator.
func HMACEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}
