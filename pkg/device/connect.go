package device

import (
	"context"

	"github.com/nukibridge/core/pkg/nukiproto"
)

// connect establishes (or reuses) the BLE link to this device, probing its
// kind on first connect by checking for the opener's pairing characteristic,
// and subscribing to notifications on both the pairing and service
// characteristics.
func (d *Device) connect(ctx context.Context) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	if conn != nil && conn.IsConnected() {
		return nil
	}

	conn, err := d.dialer.Dial(ctx, d.Address, d.ConnectionTimeout)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.conn = conn
	kind := d.Kind
	d.mu.Unlock()

	if kind == nukiproto.DeviceKindUnknown {
		isOpener, err := conn.HasCharacteristic(nukiproto.OpenerPairingChar)
		if err != nil {
			return err
		}
		if isOpener {
			kind = nukiproto.DeviceKindOpener
		} else {
			kind = nukiproto.DeviceKindSmartLock12
		}
		d.mu.Lock()
		d.Kind = kind
		d.mu.Unlock()
		if d.log != nil {
			d.log.Infof("device kind: %s", kind)
		}
	}

	pairingChar, serviceChar := nukiproto.CharacteristicsFor(kind)
	if err := conn.SubscribeNotify(pairingChar, d.onPairingNotify); err != nil {
		return err
	}
	if err := conn.SubscribeNotify(serviceChar, d.onServiceNotify); err != nil {
		return err
	}
	return nil
}

// Connect establishes the BLE link and, on first contact, probes the
// device's kind. Callers that only need the kind identified (the manager's
// first-sighting handling) use this instead of issuing a command.
func (d *Device) Connect(ctx context.Context) error {
	return d.queue.Run(ctx, d.connect)
}

// disconnect tears down the BLE link, if any.
func (d *Device) disconnect() error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Disconnect()
}

// Disconnect tears down the BLE link outside the task queue, for the
// manager's idle-timeout cleanup (the adapter is already known to be free
// at that point, so this bypasses Enqueuer.Run rather than deadlocking
// against it).
func (d *Device) Disconnect() error {
	return d.disconnect()
}
