package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

func testRecord(t *testing.T, address string) device.Record {
	t.Helper()
	pub, priv, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	nukiPub, _, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	return device.Record{
		Address:          address,
		Kind:             nukiproto.DeviceKindSmartLock12,
		NukiPublicKey:    nukiPub,
		BridgePublicKey:  pub,
		BridgePrivateKey: priv,
	}
}

func TestBridge_RegisterAndLookupDevice(t *testing.T) {
	port := bleport.NewFakePort()
	port.AddPeer("AA:BB:CC:DD:EE:FF")

	b := New(Config{Identity: Identity{Name: "test-bridge", AppID: 1}, Port: port})

	if _, err := b.RegisterDevice(testRecord(t, "AA:BB:CC:DD:EE:FF")); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	devices := b.Devices()
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("address = %q", devices[0].Address)
	}

	if _, err := b.DeviceByID(0xFFFFFFFF); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBridge_SetStateObserverFiresImmediately(t *testing.T) {
	port := bleport.NewFakePort()
	port.AddPeer("AA:BB:CC:DD:EE:FF")

	b := New(Config{Identity: Identity{Name: "test-bridge", AppID: 1}, Port: port})
	if _, err := b.RegisterDevice(testRecord(t, "AA:BB:CC:DD:EE:FF")); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	seen := make(chan struct{}, 1)
	b.SetStateObserver(func(v DeviceView) {
		select {
		case seen <- struct{}{}:
		default:
		}
	})

	select {
	case <-seen:
	case <-time.After(time.Second):
		t.Fatal("expected the observer to fire immediately for the already-registered device")
	}
}

func TestBridge_StartTwiceFails(t *testing.T) {
	port := bleport.NewFakePort()
	b := New(Config{Identity: Identity{Name: "test-bridge", AppID: 1}, Port: port})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Stop()

	if err := b.Start(ctx); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}
