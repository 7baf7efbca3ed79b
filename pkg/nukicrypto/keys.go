package nukicrypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the length in bytes of an X25519 public or secret key.
const KeySize = 32

// PublicKey and SecretKey are X25519 (Curve25519) keys, 32 bytes each.
type PublicKey [KeySize]byte
type SecretKey [KeySize]byte

// SharedKey is the 32-byte symmetric key produced by shared-key derivation,
// suitable for use as a secretbox key.
type SharedKey [KeySize]byte

// ErrInvalidKeyLength is returned when a hex-decoded or wire-provided key
// does not have the expected 32-byte length.
var ErrInvalidKeyLength = errors.New("nukicrypto: key must be 32 bytes")

// GenerateKeypair creates a fresh X25519 keypair for the bridge identity,
// as performed once at first run (mirrors nacl.public.PrivateKey.generate()
// in the original Python bridge).
func GenerateKeypair() (PublicKey, SecretKey, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return PublicKey{}, SecretKey{}, err
	}
	return PublicKey(*pub), SecretKey(*priv), nil
}

// DeriveSharedKey computes the Nuki shared key: the NaCl crypto_box_beforenm
// precomputation of (peerPublicKey, localSecretKey), i.e. an HSalsa20 of the
// X25519 Diffie-Hellman shared point. This must be called exactly once per
// device and the result cached; it is the `shared_key` used for every
// encrypted frame and H_k() authenticator for that device's lifetime.
func DeriveSharedKey(peerPublicKey PublicKey, localSecretKey SecretKey) SharedKey {
	var shared [KeySize]byte
	pub := [KeySize]byte(peerPublicKey)
	priv := [KeySize]byte(localSecretKey)
	box.Precompute(&shared, &pub, &priv)
	return SharedKey(shared)
}

// BytesToPublicKey validates and converts a 32-byte slice into a PublicKey.
func BytesToPublicKey(b []byte) (PublicKey, error) {
	if len(b) != KeySize {
		return PublicKey{}, ErrInvalidKeyLength
	}
	var k PublicKey
	copy(k[:], b)
	return k, nil
}

// BytesToSecretKey validates and converts a 32-byte slice into a SecretKey.
func BytesToSecretKey(b []byte) (SecretKey, error) {
	if len(b) != KeySize {
		return SecretKey{}, ErrInvalidKeyLength
	}
	var k SecretKey
	copy(k[:], b)
	return k, nil
}
