package codec

import (
	"bytes"
	"testing"

	"github.com/nukibridge/core/pkg/nukiproto"
)

func TestEncodeDecodeFrame_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		cmd     nukiproto.Command
		payload []byte
	}{
		{"empty payload", nukiproto.CommandRequestData, nil},
		{"public key payload", nukiproto.CommandPublicKey, bytes.Repeat([]byte{0xAB}, 32)},
		{"odd length payload", nukiproto.CommandChallenge, []byte{1, 2, 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := EncodeFrame(tc.cmd, tc.payload)
			gotCmd, gotPayload, err := DecodeFrame(frame)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if gotCmd != tc.cmd {
				t.Errorf("cmd = %v, want %v", gotCmd, tc.cmd)
			}
			if !bytes.Equal(gotPayload, tc.payload) {
				t.Errorf("payload = %v, want %v", gotPayload, tc.payload)
			}
		})
	}
}

func TestDecodeFrame_ShortFrame(t *testing.T) {
	_, _, err := DecodeFrame([]byte{1, 2, 3})
	if err != ErrShortFrame {
		t.Fatalf("err = %v, want ErrShortFrame", err)
	}
}

func TestDecodeFrame_CrcTamper(t *testing.T) {
	frame := EncodeFrame(nukiproto.CommandRequestData, []byte{0x01, 0x02})
	for i := range frame {
		tampered := make([]byte, len(frame))
		copy(tampered, frame)
		tampered[i] ^= 0xFF
		if _, _, err := DecodeFrame(tampered); err != ErrCrcMismatch {
			t.Errorf("byte %d: err = %v, want ErrCrcMismatch", i, err)
		}
	}
}
