package codec

import (
	"encoding/binary"
	"time"

	"github.com/nukibridge/core/pkg/nukiproto"
)

// EncodePublicKey builds a PUBLIC_KEY payload: the raw 32-byte X25519 key.
func EncodePublicKey(pub [32]byte) []byte {
	out := make([]byte, 32)
	copy(out, pub[:])
	return out
}

// EncodeAuthAuthenticator builds an AUTH_AUTHENTICATOR payload: the 32-byte
// authenticator H_k(bridge_public_key || lock_public_key || challenge).
func EncodeAuthAuthenticator(authenticator [32]byte) []byte {
	out := make([]byte, 32)
	copy(out, authenticator[:])
	return out
}

// EncodeAuthData builds an AUTH_DATA payload: authenticator(32) ||
// client_type(1) || app_id(4 LE) || name(32, null-padded) || nonce(32).
func EncodeAuthData(authenticator [32]byte, clientType nukiproto.ClientType, appID uint32, name string, nonce [32]byte) []byte {
	out := make([]byte, 32+1+4+32+32)
	off := 0
	copy(out[off:off+32], authenticator[:])
	off += 32
	out[off] = byte(clientType)
	off++
	binary.LittleEndian.PutUint32(out[off:off+4], appID)
	off += 4
	nameBytes := []byte(name)
	if len(nameBytes) > 32 {
		nameBytes = nameBytes[:32]
	}
	copy(out[off:off+32], nameBytes)
	off += 32
	copy(out[off:off+32], nonce[:])
	return out
}

// EncodeAuthIDConfirm builds the trailing auth_id(4) field of an
// AUTH_ID_CONFIRM payload. The full payload is HMAC(32) || auth_id(4); the
// device session assembles it directly and does not call this function.
func EncodeAuthIDConfirm(authID [4]byte) []byte {
	out := make([]byte, 4)
	copy(out, authID[:])
	return out
}

// EncodeLockAction builds a LOCK_ACTION payload: action(1) || app_id(4 LE)
// || flags(1) || nonce, where nonce is the 32-byte CHALLENGE nonce the lock
// sent for this action. The nonce is copied at whatever length it is given.
func EncodeLockAction(action nukiproto.Action, appID uint32, flags uint8, nonce []byte) []byte {
	out := make([]byte, 1+4+1+len(nonce))
	out[0] = byte(action)
	binary.LittleEndian.PutUint32(out[1:5], appID)
	out[5] = flags
	copy(out[6:], nonce)
	return out
}

// EncodeRequestConfig builds a REQUEST_CONFIG payload: the 32-byte nonce
// the lock echoes back as part of the CONFIG reply's integrity check.
func EncodeRequestConfig(nonce [32]byte) []byte {
	out := make([]byte, 32)
	copy(out, nonce[:])
	return out
}

// EncodeRequestData builds a REQUEST_DATA payload: the command code the
// caller wants the lock to send next.
func EncodeRequestData(cmd nukiproto.Command) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(cmd))
	return out
}

// EncodeDateTime encodes the 7-byte date-time field shared by
// KEYTURNER_STATES and CONFIG.
func EncodeDateTime(t time.Time) []byte {
	out := make([]byte, 7)
	binary.LittleEndian.PutUint16(out[0:2], uint16(t.Year()))
	out[2] = byte(t.Month())
	out[3] = byte(t.Day())
	out[4] = byte(t.Hour())
	out[5] = byte(t.Minute())
	out[6] = byte(t.Second())
	return out
}
