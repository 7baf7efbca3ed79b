package codec

import (
	"bytes"
	"testing"

	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

func testSharedKey(t *testing.T) nukicrypto.SharedKey {
	t.Helper()
	_, alicePriv, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	bobPub, _, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	return nukicrypto.DeriveSharedKey(bobPub, alicePriv)
}

func TestEncodeDecodeEncryptedFrame_RoundTrip(t *testing.T) {
	key := testSharedKey(t)
	cases := []struct {
		name    string
		authID  uint32
		cmd     nukiproto.Command
		payload []byte
	}{
		{"empty payload", 0x01020304, nukiproto.CommandRequestData, nil},
		{"lock action", 0xDEADBEEF, nukiproto.CommandLockAction, []byte{0x01, 0x02, 0x03}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := EncodeEncryptedFrame(key, tc.authID, tc.cmd, tc.payload)
			if err != nil {
				t.Fatalf("EncodeEncryptedFrame: %v", err)
			}
			gotAuthID, gotCmd, gotPayload, err := DecodeEncryptedFrame(key, frame)
			if err != nil {
				t.Fatalf("DecodeEncryptedFrame: %v", err)
			}
			if gotAuthID != tc.authID {
				t.Errorf("authID = %x, want %x", gotAuthID, tc.authID)
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

func TestDecodeEncryptedFrame_WrongKey(t *testing.T) {
	key := testSharedKey(t)
	wrongKey := testSharedKey(t)

	frame, err := EncodeEncryptedFrame(key, 1, nukiproto.CommandRequestData, []byte{0x01})
	if err != nil {
		t.Fatalf("EncodeEncryptedFrame: %v", err)
	}
	if _, _, _, err := DecodeEncryptedFrame(wrongKey, frame); err != ErrAeadFailure {
		t.Fatalf("err = %v, want ErrAeadFailure", err)
	}
}

func TestDecodeEncryptedFrame_TamperedCiphertext(t *testing.T) {
	key := testSharedKey(t)
	frame, err := EncodeEncryptedFrame(key, 1, nukiproto.CommandLockAction, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("EncodeEncryptedFrame: %v", err)
	}

	ciphertextStart := nukicrypto.NonceSize + 4 + 2
	for i := ciphertextStart; i < len(frame); i++ {
		tampered := make([]byte, len(frame))
		copy(tampered, frame)
		tampered[i] ^= 0xFF
		if _, _, _, err := DecodeEncryptedFrame(key, tampered); err != ErrAeadFailure {
			t.Errorf("byte %d: err = %v, want ErrAeadFailure", i, err)
		}
	}
}

func TestDecodeEncryptedFrame_ShortFrame(t *testing.T) {
	key := testSharedKey(t)
	if _, _, _, err := DecodeEncryptedFrame(key, []byte{1, 2, 3}); err != ErrShortFrame {
		t.Fatalf("err = %v, want ErrShortFrame", err)
	}
}
