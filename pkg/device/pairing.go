package device

import (
	"context"

	"github.com/nukibridge/core/pkg/codec"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// Pair starts the pairing handshake: REQUEST_DATA(PUBLIC_KEY) on the
// pairing characteristic, followed by the PUBLIC_KEY/CHALLENGE/AUTH_DATA/
// AUTH_ID/AUTH_ID_CONFIRM exchange driven entirely by onPairingNotify. onDone
// is invoked exactly once, with a nil error on success.
//
// The device must already be in pairing mode (button held for 6 seconds);
// the lock announces this over its pairing service advertisement.
func (d *Device) Pair(ctx context.Context, onDone func(error)) error {
	d.mu.Lock()
	if d.pairingCB != nil {
		d.mu.Unlock()
		return ErrAlreadyPairing
	}
	d.pairingCB = func(_ *Device, err error) { onDone(err) }
	d.pending = pendingOp{kind: pendingPublicKey}
	d.mu.Unlock()

	// Route the initial connect through the task queue like every other
	// exchange, so scanning is paused before the adapter dials out (§9:
	// pairing is a request the queue treats like any other task).
	if err := d.queue.Run(ctx, d.connect); err != nil {
		d.failPairing(err)
		return err
	}

	payload := codec.EncodeRequestData(nukiproto.CommandPublicKey)
	return d.sendPairingFrame(ctx, nukiproto.CommandRequestData, payload)
}

func (d *Device) completePairing(err error) {
	d.mu.Lock()
	cb := d.pairingCB
	d.pairingCB = nil
	d.mu.Unlock()
	if cb != nil {
		cb(d, err)
	}
}

func (d *Device) failPairing(err error) {
	d.completePairing(err)
}
