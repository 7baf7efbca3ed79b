package nukiconfig

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// ToDeviceRecord decodes the hex-encoded fields of a persisted DeviceRecord
// into the in-memory device.Record the core operates on. The device kind is
// not persisted, so it is left DeviceKindUnknown for the first connect to
// probe.
func (r DeviceRecord) ToDeviceRecord() (device.Record, error) {
	var out device.Record
	out.Address = r.Address
	out.Kind = nukiproto.DeviceKindUnknown

	if r.AuthID != "" {
		authIDBytes, err := hex.DecodeString(r.AuthID)
		if err != nil || len(authIDBytes) != 4 {
			return device.Record{}, fmt.Errorf("nukiconfig: invalid auth_id for %s", r.Address)
		}
		out.AuthID = uint32(authIDBytes[0]) | uint32(authIDBytes[1])<<8 | uint32(authIDBytes[2])<<16 | uint32(authIDBytes[3])<<24
	}

	if r.NukiPublicKey != "" {
		k, err := decodeKey(r.NukiPublicKey)
		if err != nil {
			return device.Record{}, fmt.Errorf("nukiconfig: nuki_public_key for %s: %w", r.Address, err)
		}
		out.NukiPublicKey = k
	}

	bridgePub, err := decodeKey(r.BridgePublicKey)
	if err != nil {
		return device.Record{}, fmt.Errorf("nukiconfig: bridge_public_key for %s: %w", r.Address, err)
	}
	out.BridgePublicKey = nukicrypto.PublicKey(bridgePub)

	bridgeSec, err := decodeKey(r.BridgePrivateKey)
	if err != nil {
		return device.Record{}, fmt.Errorf("nukiconfig: bridge_private_key for %s: %w", r.Address, err)
	}
	out.BridgePrivateKey = nukicrypto.SecretKey(bridgeSec)

	out.Retry = r.Retry
	if r.ConnectionTimeout > 0 {
		out.ConnectionTimeout = time.Duration(r.ConnectionTimeout) * time.Second
	}
	if r.CommandTimeout > 0 {
		out.CommandTimeout = time.Duration(r.CommandTimeout) * time.Second
	}
	return out, nil
}

// FromDeviceRecord encodes an in-memory device.Record (as filled in by a
// completed pairing) into its persisted hex form.
func FromDeviceRecord(rec device.Record) DeviceRecord {
	authIDBytes := []byte{
		byte(rec.AuthID),
		byte(rec.AuthID >> 8),
		byte(rec.AuthID >> 16),
		byte(rec.AuthID >> 24),
	}
	return DeviceRecord{
		Address:           rec.Address,
		AuthID:            hex.EncodeToString(authIDBytes),
		NukiPublicKey:     hex.EncodeToString(rec.NukiPublicKey[:]),
		BridgePublicKey:   hex.EncodeToString(rec.BridgePublicKey[:]),
		BridgePrivateKey:  hex.EncodeToString(rec.BridgePrivateKey[:]),
		Retry:             rec.Retry,
		ConnectionTimeout: int(rec.ConnectionTimeout / time.Second),
		CommandTimeout:    int(rec.CommandTimeout / time.Second),
	}
}

func decodeKey(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, nukicrypto.ErrInvalidKeyLength
	}
	copy(out[:], b)
	return out, nil
}

// GenerateBridgeKeys creates a fresh X25519 keypair for the bridge
// identity, performed once at first run (mirrors
// nacl.public.PrivateKey.generate() in the original bridge's config.py).
func GenerateBridgeKeys() (pub, sec [32]byte, err error) {
	p, s, err := nukicrypto.GenerateKeypair()
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	return [32]byte(p), [32]byte(s), nil
}
