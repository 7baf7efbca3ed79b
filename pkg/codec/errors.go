// Package codec implements the Nuki BLE wire format: CRC-16/XMODEM framing
// on the unencrypted pairing channel, authenticated-encrypted framing on the
// service channel, and typed parsing of command payloads.
package codec

import "errors"

var (
	// ErrShortFrame is returned when a frame is shorter than its minimum
	// possible length (cmd + crc, or nonce + auth_id + ctlen for encrypted
	// frames).
	ErrShortFrame = errors.New("codec: frame shorter than minimum length")

	// ErrCrcMismatch is returned when a pairing-channel frame's trailing
	// CRC-16/XMODEM does not match the computed value over cmd||payload.
	ErrCrcMismatch = errors.New("codec: crc16 mismatch")

	// ErrAeadFailure is returned when an encrypted frame fails secretbox
	// authentication: the ciphertext or nonce was tampered with, or the
	// wrong shared key was used.
	ErrAeadFailure = errors.New("codec: aead authentication failed")

	// ErrUnknownCommand identifies a command code that matches no known Nuki
	// command. DecodeFrame and DecodeEncryptedFrame do not check command
	// codes and never return it.
	ErrUnknownCommand = errors.New("codec: unknown command code")

	// ErrTruncatedPayload is returned when a command's payload is shorter
	// than the fixed layout that command requires.
	ErrTruncatedPayload = errors.New("codec: payload truncated for command")
)
