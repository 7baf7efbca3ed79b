// Package device implements a single Nuki lock or opener's pairing and
// command-dispatch state machine: the per-device analogue of the PASE
// handshake session in this codebase's secure-channel layer, adapted to the
// Nuki BLE protocol's pairing-frame / challenge-response flow.
package device

import "errors"

var (
	// ErrNotPaired is returned when an operation that requires a shared key
	// is attempted before pairing has completed.
	ErrNotPaired = errors.New("device: not paired")

	// ErrAlreadyPairing is returned when Pair is called while a pairing
	// handshake is already in flight.
	ErrAlreadyPairing = errors.New("device: pairing already in progress")

	// ErrPairingTimeout identifies a pairing handshake that did not complete
	// in time. Pair sets no deadline of its own and nothing in this package
	// returns it.
	ErrPairingTimeout = errors.New("device: pairing timeout")

	// ErrPairingRejected is the NOT_PAIRING fatal case: the lock reports it
	// is not in pairing mode in response to pairing traffic.
	ErrPairingRejected = errors.New("device: lock reports not in pairing mode")

	// ErrUnexpectedMessage identifies a command that does not match what the
	// current pending operation expects. The notification handlers drop such
	// messages without returning it.
	ErrUnexpectedMessage = errors.New("device: unexpected message for pending operation")

	// ErrAuthIDMismatch is returned when VerifyAuthID is enabled and the
	// lock's AUTH_ID authenticator does not verify.
	ErrAuthIDMismatch = errors.New("device: auth id authenticator mismatch")

	// ErrSendFailed is returned when all configured retry attempts to write
	// a command to the peripheral have failed.
	ErrSendFailed = errors.New("device: failed to send command after retries")

	// ErrNoConnection is returned when a device operation requires a BLE
	// link but none has been established.
	ErrNoConnection = errors.New("device: no active connection")
)
