package codec

import (
	"encoding/binary"

	"github.com/nukibridge/core/pkg/nukiproto"
)

// minPairingFrameLen is cmd(2) + crc(2); payload may be empty.
const minPairingFrameLen = 4

// EncodeFrame builds an unencrypted pairing-channel frame:
// cmd (2 LE) || payload || crc16 (2 LE), where the CRC-16/XMODEM (init
// 0xFFFF) covers cmd||payload.
func EncodeFrame(cmd nukiproto.Command, payload []byte) []byte {
	body := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(body[:2], uint16(cmd))
	copy(body[2:], payload)

	crc := CRC16XModem(body, 0xFFFF)
	frame := make([]byte, len(body)+2)
	copy(frame, body)
	binary.LittleEndian.PutUint16(frame[len(body):], crc)
	return frame
}

// DecodeFrame parses an unencrypted pairing-channel frame, verifying its
// trailing CRC-16/XMODEM.
func DecodeFrame(data []byte) (nukiproto.Command, []byte, error) {
	if len(data) < minPairingFrameLen {
		return 0, nil, ErrShortFrame
	}

	body := data[:len(data)-2]
	wantCRC := binary.LittleEndian.Uint16(data[len(data)-2:])
	gotCRC := CRC16XModem(body, 0xFFFF)
	if gotCRC != wantCRC {
		return 0, nil, ErrCrcMismatch
	}

	cmd := nukiproto.Command(binary.LittleEndian.Uint16(body[:2]))
	payload := body[2:]
	return cmd, payload, nil
}
