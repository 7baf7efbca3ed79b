// Package bleport defines the abstract BLE transport the device and manager
// packages run their protocol over: scanning for advertisements, dialing a
// connection, writing to a GATT characteristic, and subscribing to
// notifications. Concrete adapters (pkg/bleadapter/rigadoble, or a fake for
// tests) implement these interfaces; nothing above this package imports a
// concrete BLE library directly.
package bleport

import (
	"context"
	"time"
)

// AppleManufacturerID is the Bluetooth SIG company identifier Apple
// advertises under; Nuki devices advertise iBeacon-style manufacturer data
// tagged with this id.
const AppleManufacturerID = 76

// Advertisement is a single BLE advertising report.
type Advertisement struct {
	Address          string
	RSSI             int
	ManufacturerData map[uint16][]byte
}

// NukiManufacturerData returns this advertisement's Apple (id 76)
// manufacturer data and whether it was present.
func (a Advertisement) NukiManufacturerData() ([]byte, bool) {
	data, ok := a.ManufacturerData[AppleManufacturerID]
	return data, ok
}

// Scanner discovers nearby BLE peripherals via advertisement reports.
type Scanner interface {
	// Start begins scanning. Advertisements are delivered to the channel
	// returned by Advertisements until Stop is called or ctx is canceled.
	Start(ctx context.Context) error
	// Stop ends scanning.
	Stop(ctx context.Context) error
	// Advertisements returns the channel advertisement reports are sent on.
	// Valid only while scanning is active.
	Advertisements() <-chan Advertisement
}

// NotifyFunc receives a notification/indication payload from a subscribed
// characteristic.
type NotifyFunc func(data []byte)

// Conn is a connected BLE peripheral link.
type Conn interface {
	// Address returns the peripheral's BLE address.
	Address() string
	// IsConnected reports whether the link is currently established.
	IsConnected() bool
	// Disconnect tears down the link. Safe to call when not connected.
	Disconnect() error
	// HasCharacteristic reports whether the peripheral exposes the given
	// characteristic UUID, used to distinguish a smart lock from an opener
	// by the presence of their respective pairing characteristics.
	HasCharacteristic(uuid string) (bool, error)
	// WriteCharacteristic writes data to the given characteristic.
	WriteCharacteristic(uuid string, data []byte) error
	// SubscribeNotify registers fn to be called for every notification
	// received on the given characteristic.
	SubscribeNotify(uuid string, fn NotifyFunc) error
}

// Dialer establishes connections to BLE peripherals by address.
type Dialer interface {
	// Dial connects to the peripheral at address, failing if it does not
	// respond within timeout.
	Dial(ctx context.Context, address string, timeout time.Duration) (Conn, error)
}

// Port bundles the scanning and dialing capability a manager needs.
type Port interface {
	Scanner
	Dialer
}
