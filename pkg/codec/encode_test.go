package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/nukibridge/core/pkg/nukiproto"
)

func TestEncodeAuthData_Layout(t *testing.T) {
	var auth, nonce [32]byte
	for i := range auth {
		auth[i] = byte(i)
	}
	for i := range nonce {
		nonce[i] = byte(255 - i)
	}

	out := EncodeAuthData(auth, nukiproto.ClientTypeBridge, 0xAABBCCDD, "bridge", nonce)
	if len(out) != 32+1+4+32+32 {
		t.Fatalf("len = %d, want %d", len(out), 32+1+4+32+32)
	}
	if !bytes.Equal(out[:32], auth[:]) {
		t.Error("authenticator mismatch")
	}
	if out[32] != byte(nukiproto.ClientTypeBridge) {
		t.Errorf("client_type = %d, want %d", out[32], nukiproto.ClientTypeBridge)
	}
	name := bytes.TrimRight(out[37:69], "\x00")
	if string(name) != "bridge" {
		t.Errorf("name = %q, want %q", name, "bridge")
	}
	if !bytes.Equal(out[69:101], nonce[:]) {
		t.Error("nonce mismatch")
	}
}

func TestEncodeDateTime_RoundTrip(t *testing.T) {
	want := time.Date(2025, 12, 31, 23, 59, 1, 0, time.UTC)
	encoded := EncodeDateTime(want)
	got, err := parseDateTime(encoded)
	if err != nil {
		t.Fatalf("parseDateTime: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEncodeLockAction_Layout(t *testing.T) {
	out := EncodeLockAction(nukiproto.ActionUnlock, 0x11223344, 0x01, nil)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}
	if out[0] != byte(nukiproto.ActionUnlock) {
		t.Errorf("action = %d, want %d", out[0], nukiproto.ActionUnlock)
	}
}
