package device

import (
	"context"

	"github.com/nukibridge/core/pkg/codec"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// requestChallenge sends an encrypted REQUEST_DATA(CHALLENGE), the common
// first step of every post-pairing operation: the lock always replies with
// a fresh CHALLENGE nonce that the pending operation then consumes.
func (d *Device) requestChallenge(ctx context.Context, op pendingOp) error {
	d.mu.Lock()
	d.pending = op
	d.mu.Unlock()

	payload := codec.EncodeRequestData(nukiproto.CommandChallenge)
	return d.sendEncryptedFrame(ctx, nukiproto.CommandRequestData, payload)
}

// UpdateState requests a fresh KEYTURNER_STATES reading. Unlike the
// confirmation-requiring operations below, the lock answers this directly
// without an intervening CHALLENGE round-trip.
func (d *Device) UpdateState(ctx context.Context) error {
	d.mu.Lock()
	d.pending = pendingOp{kind: pendingKeyturnerStates}
	d.mu.Unlock()

	payload := codec.EncodeRequestData(nukiproto.CommandKeyturnerStates)
	return d.sendEncryptedFrame(ctx, nukiproto.CommandRequestData, payload)
}

// GetConfig requests the device's CONFIG, which does require a CHALLENGE
// round-trip to prove freshness.
func (d *Device) GetConfig(ctx context.Context) error {
	return d.requestChallenge(ctx, pendingOp{kind: pendingRequestConfig})
}

// Lock requests the lock action and optimistically marks the local state
// as Locking so observers see immediate feedback while the command is in
// flight.
func (d *Device) Lock(ctx context.Context) error {
	d.setOptimisticLockState(nukiproto.LockStateLocking)
	return d.LockAction(ctx, nukiproto.ActionLock)
}

// Unlock requests UNLOCK, optimistically marking the local state Unlocking.
func (d *Device) Unlock(ctx context.Context) error {
	d.setOptimisticLockState(nukiproto.LockStateUnlocking)
	return d.LockAction(ctx, nukiproto.ActionUnlock)
}

// Unlatch requests UNLATCH, optimistically marking the local state
// Unlatching.
func (d *Device) Unlatch(ctx context.Context) error {
	d.setOptimisticLockState(nukiproto.LockStateUnlatching)
	return d.LockAction(ctx, nukiproto.ActionUnlatch)
}

// LockAction requests an arbitrary lock action.
func (d *Device) LockAction(ctx context.Context, action nukiproto.Action) error {
	return d.requestChallenge(ctx, pendingOp{kind: pendingLockAction, action: action})
}

func (d *Device) setOptimisticLockState(pos nukiproto.LockState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastState == nil {
		return
	}
	d.lastState.LockPosition = uint8(pos)
}
