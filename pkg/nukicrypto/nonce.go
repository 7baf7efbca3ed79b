package nukicrypto

import "crypto/rand"

// RandomNonce draws a fresh 24-byte nonce from the process CSPRNG. Nonce
// reuse under the same shared key is forbidden; 24 random bytes make
// collision statistically negligible across any realistic device lifetime.
func RandomNonce() (Nonce, error) {
	var n Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return Nonce{}, err
	}
	return n, nil
}

// Random32 draws 32 random bytes, used for the n3 nonce in AUTH_DATA and
// for other 32-byte protocol nonces.
func Random32() ([32]byte, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return [32]byte{}, err
	}
	return b, nil
}
