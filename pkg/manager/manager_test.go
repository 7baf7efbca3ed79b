package manager

import (
	"context"
	"testing"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

func TestManager_AddAndLookupDevice(t *testing.T) {
	port := bleport.NewFakePort()
	port.AddPeer("AA:BB:CC:DD:EE:FF")

	m := New(Config{Name: "bridge", AppID: 1, Port: port})

	pub, priv, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	d, err := m.AddDevice(device.Record{
		Address:          "AA:BB:CC:DD:EE:FF",
		Kind:             nukiproto.DeviceKindUnknown,
		BridgePublicKey:  pub,
		BridgePrivateKey: priv,
	}, device.Config{ClientType: nukiproto.ClientTypeBridge})
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if _, err := m.AddDevice(device.Record{Address: "AA:BB:CC:DD:EE:FF"}, device.Config{}); err != ErrDuplicateAddress {
		t.Fatalf("expected ErrDuplicateAddress, got %v", err)
	}

	got, err := m.DeviceByAddress("AA:BB:CC:DD:EE:FF")
	if err != nil || got != d {
		t.Fatalf("DeviceByAddress: got %v, %v", got, err)
	}

	if _, err := m.DeviceByAddress("nope"); err != ErrDeviceNotFound {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	devices := m.Devices()
	if len(devices) != 1 || devices[0] != d {
		t.Fatalf("expected exactly the one registered device, got %v", devices)
	}
}

func TestManager_AdvertisementTriggersUpdateState(t *testing.T) {
	port := bleport.NewFakePort()
	conn := port.AddPeer("AA:BB:CC:DD:EE:FF")
	conn.SetCharacteristic(nukiproto.OpenerPairingChar, false)

	notified := make(chan struct{}, 1)
	writeSeen := make(chan struct{}, 1)
	conn.OnWrite = func(characteristic string, data []byte) {
		select {
		case writeSeen <- struct{}{}:
		default:
		}
	}

	m := New(Config{Name: "bridge", AppID: 1, Port: port})
	m.SetNotify(func(d *device.Device) {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	pub, priv, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	nukiPub, _, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate nuki keypair: %v", err)
	}

	if _, err := m.AddDevice(device.Record{
		Address:          "AA:BB:CC:DD:EE:FF",
		Kind:             nukiproto.DeviceKindSmartLock12,
		AuthID:           0x01020304,
		NukiPublicKey:    nukiPub,
		BridgePublicKey:  pub,
		BridgePrivateKey: priv,
	}, device.Config{ClientType: nukiproto.ClientTypeBridge}); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	port.Advertise(bleport.Advertisement{
		Address:          "AA:BB:CC:DD:EE:FF",
		RSSI:             -50,
		ManufacturerData: map[uint16][]byte{bleport.AppleManufacturerID: {0x02, 0x00, 0x00}},
	})

	select {
	case <-writeSeen:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the manager to issue a KEYTURNER_STATES request")
	}
}
