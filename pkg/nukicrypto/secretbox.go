package nukicrypto

import (
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// NonceSize is the length in bytes of a secretbox nonce.
const NonceSize = 24

// Overhead is the length in bytes of the Poly1305 authentication tag
// secretbox appends to every sealed message.
const Overhead = secretbox.Overhead

// Nonce is a 24-byte nonce drawn fresh for every encrypted frame.
type Nonce [NonceSize]byte

// ErrAuthFailed is returned when Open fails to authenticate a ciphertext,
// i.e. the frame was tampered with or the wrong key/nonce was used.
var ErrAuthFailed = errors.New("nukicrypto: secretbox authentication failed")

// Seal encrypts and authenticates plaintext under key with the given nonce,
// using XSalsa20-Poly1305 (NaCl secretbox). The returned ciphertext is
// plaintext-length + Overhead bytes; it does not include the nonce.
func Seal(key SharedKey, nonce Nonce, plaintext []byte) []byte {
	k := [KeySize]byte(key)
	n := [NonceSize]byte(nonce)
	return secretbox.Seal(nil, plaintext, &n, &k)
}

// Open authenticates and decrypts a ciphertext produced by Seal with the
// same key and nonce. Returns ErrAuthFailed if the authentication tag does
// not verify.
func Open(key SharedKey, nonce Nonce, ciphertext []byte) ([]byte, error) {
	k := [KeySize]byte(key)
	n := [NonceSize]byte(nonce)
	plaintext, ok := secretbox.Open(nil, ciphertext, &n, &k)
	if !ok {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
