package codec

import (
	"encoding/binary"

	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// minEncryptedFrameLen is nonce(24) + auth_id(4) + ctlen(2); the ciphertext
// itself may be empty only in the sense that it still carries secretbox
// overhead.
const minEncryptedFrameLen = nukicrypto.NonceSize + 4 + 2

// EncodeEncryptedFrame builds a service-channel frame:
//
//	nonce(24) || auth_id(4 LE) || ctlen(2 LE) || ciphertext
//
// where ciphertext is secretbox.Seal(nonce, plaintext, sharedKey) and
// plaintext is auth_id(4 LE) || cmd(2 LE) || payload || crc16(2 LE), the
// CRC-16/XMODEM (init 0xFFFF) computed over auth_id||cmd||payload.
func EncodeEncryptedFrame(sharedKey nukicrypto.SharedKey, authID uint32, cmd nukiproto.Command, payload []byte) ([]byte, error) {
	plain := make([]byte, 4+2+len(payload))
	binary.LittleEndian.PutUint32(plain[0:4], authID)
	binary.LittleEndian.PutUint16(plain[4:6], uint16(cmd))
	copy(plain[6:], payload)

	crc := CRC16XModem(plain, 0xFFFF)
	plain = append(plain, 0, 0)
	binary.LittleEndian.PutUint16(plain[len(plain)-2:], crc)

	nonce, err := nukicrypto.RandomNonce()
	if err != nil {
		return nil, err
	}

	ciphertext := nukicrypto.Seal(sharedKey, nonce, plain)

	frame := make([]byte, 0, nukicrypto.NonceSize+4+2+len(ciphertext))
	frame = append(frame, nonce[:]...)
	authIDBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(authIDBytes, authID)
	frame = append(frame, authIDBytes...)
	ctlen := make([]byte, 2)
	binary.LittleEndian.PutUint16(ctlen, uint16(len(ciphertext)))
	frame = append(frame, ctlen...)
	frame = append(frame, ciphertext...)
	return frame, nil
}

// DecodeEncryptedFrame parses and authenticates a service-channel frame,
// verifying both the secretbox AEAD tag and the CRC-16/XMODEM covering the
// decrypted auth_id||cmd||payload.
func DecodeEncryptedFrame(sharedKey nukicrypto.SharedKey, data []byte) (authID uint32, cmd nukiproto.Command, payload []byte, err error) {
	if len(data) < minEncryptedFrameLen {
		return 0, 0, nil, ErrShortFrame
	}

	var nonce nukicrypto.Nonce
	copy(nonce[:], data[:nukicrypto.NonceSize])
	rest := data[nukicrypto.NonceSize:]

	frameAuthID := binary.LittleEndian.Uint32(rest[:4])
	ctlen := binary.LittleEndian.Uint16(rest[4:6])
	ciphertext := rest[6:]
	if int(ctlen) != len(ciphertext) {
		return 0, 0, nil, ErrShortFrame
	}

	plain, err := nukicrypto.Open(sharedKey, nonce, ciphertext)
	if err != nil {
		return 0, 0, nil, ErrAeadFailure
	}
	if len(plain) < 4+2+2 {
		return 0, 0, nil, ErrShortFrame
	}

	body := plain[:len(plain)-2]
	wantCRC := binary.LittleEndian.Uint16(plain[len(plain)-2:])
	if CRC16XModem(body, 0xFFFF) != wantCRC {
		return 0, 0, nil, ErrCrcMismatch
	}

	plainAuthID := binary.LittleEndian.Uint32(body[0:4])
	if plainAuthID != frameAuthID {
		return 0, 0, nil, ErrCrcMismatch
	}

	cmd = nukiproto.Command(binary.LittleEndian.Uint16(body[4:6]))
	payload = body[6:]
	return plainAuthID, cmd, payload, nil
}
