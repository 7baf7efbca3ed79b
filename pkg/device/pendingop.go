package device

import "github.com/nukibridge/core/pkg/nukiproto"

// pendingKind tags what a device is waiting for next, the Go analogue of
// the original bridge's _challenge_command attribute: it tells the
// notification handler how to interpret the next CHALLENGE, AUTH_ID, or
// STATUS reply.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingPublicKey
	pendingAuthAuthenticator
	pendingAuthData
	pendingAuthIDConfirm
	pendingRequestConfig
	pendingKeyturnerStates
	pendingLockAction
)

func (k pendingKind) String() string {
	switch k {
	case pendingNone:
		return "none"
	case pendingPublicKey:
		return "public_key"
	case pendingAuthAuthenticator:
		return "auth_authenticator"
	case pendingAuthData:
		return "auth_data"
	case pendingAuthIDConfirm:
		return "auth_id_confirm"
	case pendingRequestConfig:
		return "request_config"
	case pendingKeyturnerStates:
		return "keyturner_states"
	case pendingLockAction:
		return "lock_action"
	default:
		return "unknown"
	}
}

// pendingOp is the full state the device session tracks between sending a
// request and processing the reply it provokes.
type pendingOp struct {
	kind   pendingKind
	action nukiproto.Action // only meaningful when kind == pendingLockAction
	n3     [32]byte         // only meaningful when kind == pendingAuthData; the bridge's own AUTH_DATA nonce
}
