package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nukibridge/core/pkg/codec"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// onPairingNotify handles a notification on the unencrypted pairing
// characteristic: every message exchanged before AUTH_ID_CONFIRM/STATUS
// completes pairing.
func (d *Device) onPairingNotify(data []byte) {
	cmd, payload, err := codec.DecodeFrame(data)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("pairing frame decode: %v", err)
		}
		return
	}
	if d.log != nil {
		d.log.Debugf("pairing notify: %s", cmd)
	}

	switch cmd {
	case nukiproto.CommandPublicKey:
		d.handlePublicKey(payload)
	case nukiproto.CommandChallenge:
		d.handlePairingChallenge(payload)
	case nukiproto.CommandAuthID:
		d.handleAuthID(payload)
	case nukiproto.CommandStatus:
		d.handlePairingStatus(payload)
	case nukiproto.CommandErrorReport:
		d.handleErrorReport(payload)
	}
}

// onServiceNotify handles a notification on the encrypted service
// characteristic, used for everything after pairing completes.
func (d *Device) onServiceNotify(data []byte) {
	d.mu.Lock()
	key := d.sharedKey
	hasKey := d.hasSharedKey
	d.mu.Unlock()
	if !hasKey {
		if d.log != nil {
			d.log.Error("service notification received before pairing")
		}
		return
	}

	_, cmd, payload, err := codec.DecodeEncryptedFrame(key, data)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("service frame decode: %v", err)
		}
		return
	}
	if d.log != nil {
		d.log.Debugf("service notify: %s", cmd)
	}

	switch cmd {
	case nukiproto.CommandChallenge:
		d.handleServiceChallenge(payload)
	case nukiproto.CommandKeyturnerStates:
		d.handleKeyturnerStates(payload)
	case nukiproto.CommandConfig:
		d.handleConfig(payload)
	case nukiproto.CommandErrorReport:
		d.handleErrorReport(payload)
	}
}

func (d *Device) handlePublicKey(payload []byte) {
	pub, err := codec.ParsePublicKey(payload)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("parse public key: %v", err)
		}
		return
	}

	d.mu.Lock()
	d.NukiPublicKey = pub
	d.sharedKey = nukicrypto.DeriveSharedKey(nukicrypto.PublicKey(pub), d.BridgePrivateKey)
	d.hasSharedKey = true
	d.pending = pendingOp{kind: pendingPublicKey}
	d.mu.Unlock()

	if d.log != nil {
		d.log.Infof("nuki public key received")
	}

	go func() {
		_ = d.sendPairingFrame(context.Background(), nukiproto.CommandPublicKey, codec.EncodePublicKey(d.BridgePublicKey))
	}()
}

func (d *Device) handlePairingChallenge(payload []byte) {
	nonce, err := codec.ParseChallenge(payload)
	if err != nil {
		return
	}

	d.mu.Lock()
	pending := d.pending
	d.mu.Unlock()

	switch pending.kind {
	case pendingPublicKey:
		valueR := concat(d.BridgePublicKey[:], d.NukiPublicKey[:], nonce[:])
		auth := nukicrypto.HMACSHA256(d.sharedKeyBytes(), valueR)

		d.mu.Lock()
		d.pending = pendingOp{kind: pendingAuthAuthenticator}
		d.mu.Unlock()

		go func() {
			_ = d.sendPairingFrame(context.Background(), nukiproto.CommandAuthAuthenticator, codec.EncodeAuthAuthenticator(auth))
		}()

	case pendingAuthAuthenticator:
		n3, err := nukicrypto.Random32()
		if err != nil {
			return
		}
		clientType := d.bridgeCfg.ClientType
		appIDBytes := make([]byte, 4)
		appIDLE(appIDBytes, d.bridgeCfg.AppID)
		name := paddedName(d.bridgeCfg.Name)

		valueR := concat([]byte{byte(clientType)}, appIDBytes, name, n3[:], nonce[:])
		auth := nukicrypto.HMACSHA256(d.sharedKeyBytes(), valueR)

		payload := codec.EncodeAuthData(auth, clientType, d.bridgeCfg.AppID, d.bridgeCfg.Name, n3)

		d.mu.Lock()
		d.pending = pendingOp{kind: pendingAuthData, n3: n3}
		d.mu.Unlock()

		go func() {
			_ = d.sendPairingFrame(context.Background(), nukiproto.CommandAuthData, payload)
		}()
	}
}

func (d *Device) handleAuthID(payload []byte) {
	p, err := codec.ParseAuthID(payload)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("parse auth id: %v", err)
		}
		return
	}

	if d.bridgeCfg.VerifyAuthID {
		d.mu.Lock()
		n3 := d.pending.n3
		d.mu.Unlock()

		msg := concat(p.AuthID[:], p.UUID[:], p.Nonce[:], n3[:])
		want := nukicrypto.HMACSHA256Slice(d.sharedKeyBytes(), msg)
		if !nukicrypto.HMACEqual(want, p.Authenticator[:]) {
			if d.log != nil {
				d.log.Error("auth id authenticator mismatch")
			}
			d.failPairing(ErrAuthIDMismatch)
			return
		}
	}

	authID := leUint32(p.AuthID)

	if d.log != nil {
		d.log.Infof("assigned auth id %08x, pairing uuid %s", authID, uuid.Must(uuid.FromBytes(p.UUID[:])))
	}

	d.mu.Lock()
	d.AuthID = authID
	confirmPayload := nukicrypto.HMACSHA256Slice(d.sharedKeyBytes(), concat(p.AuthID[:], p.Nonce[:]))
	d.pending = pendingOp{kind: pendingAuthIDConfirm}
	d.mu.Unlock()

	payload2 := concat(confirmPayload, p.AuthID[:])

	go func() {
		_ = d.sendPairingFrame(context.Background(), nukiproto.CommandAuthIDConfirm, payload2)
	}()
}

func (d *Device) handlePairingStatus(payload []byte) {
	status, err := codec.ParseStatus(payload)
	if err != nil {
		return
	}
	if d.log != nil {
		d.log.Infof("pairing status: %s", status)
	}

	d.mu.Lock()
	pending := d.pending
	if pending.kind == pendingAuthIDConfirm {
		d.pending = pendingOp{kind: pendingNone}
	}
	d.mu.Unlock()

	if pending.kind == pendingAuthIDConfirm {
		d.completePairing(nil)
	}
}

func (d *Device) handleServiceChallenge(payload []byte) {
	nonce, err := codec.ParseChallenge(payload)
	if err != nil {
		return
	}

	d.mu.Lock()
	pending := d.pending
	appID := d.bridgeCfg.AppID
	d.mu.Unlock()

	switch pending.kind {
	case pendingRequestConfig:
		go func() {
			_ = d.sendEncryptedFrame(context.Background(), nukiproto.CommandRequestConfig, codec.EncodeRequestConfig(nonce))
		}()
	case pendingLockAction:
		payload := codec.EncodeLockAction(pending.action, appID, 0, nonce[:])
		go func() {
			_ = d.sendEncryptedFrame(context.Background(), nukiproto.CommandLockAction, payload)
		}()
	}
}

func (d *Device) handleKeyturnerStates(payload []byte) {
	state, err := codec.ParseKeyturnerState(payload)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("parse keyturner states: %v", err)
		}
		return
	}

	d.mu.Lock()
	pending := d.pending
	needsConfig := d.config == nil || d.lastState == nil || d.lastState.CurrentUpdateCount != state.CurrentUpdateCount
	d.lastState = &state
	d.mu.Unlock()

	if d.log != nil {
		d.log.Infof("state update: lock_position=%d trigger=%d", state.LockPosition, state.Trigger)
	}

	if pending.kind == pendingKeyturnerStates && needsConfig {
		go func() { _ = d.GetConfig(context.Background()) }()
	}

	d.maybeNotify()

	if d.Kind == nukiproto.DeviceKindOpener && state.LastLockActionCompletionStatus != 0 {
		d.scheduleOpenerReset()
	}
}

func (d *Device) handleConfig(payload []byte) {
	cfg, err := codec.ParseConfig(payload, d.Kind)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("parse config: %v", err)
		}
		return
	}

	d.mu.Lock()
	d.config = &cfg
	d.mu.Unlock()

	if d.log != nil {
		d.log.Infof("config update: name=%q firmware=%s", cfg.Name, cfg.FirmwareVersion)
	}
	d.maybeNotify()
}

func (d *Device) handleErrorReport(payload []byte) {
	report, err := codec.ParseErrorReport(payload)
	if err != nil {
		return
	}

	if report.Code == nukiproto.NotPairing {
		if d.log != nil {
			d.log.Error("lock reports it is not in pairing mode; press and hold the button to re-enter pairing mode")
		}
		d.failPairing(ErrPairingRejected)
		return
	}
	if d.log != nil {
		d.log.Errorf("error report: code=%d offending_cmd=%s", report.Code, report.OffendingCmd)
	}
}

func (d *Device) scheduleOpenerReset() {
	d.mu.Lock()
	if d.resetTimer != nil {
		d.resetTimer.Stop()
	}
	d.resetTimer = time.AfterFunc(openerStateResetDelay, func() {
		d.mu.Lock()
		if d.lastState != nil {
			d.lastState.LastLockActionCompletionStatus = 0
		}
		d.mu.Unlock()
		d.maybeNotify()
	})
	d.mu.Unlock()
}

func (d *Device) sharedKeyBytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := d.sharedKey
	out := make([]byte, len(key))
	copy(out, key[:])
	return out
}

func appIDLE(out []byte, v uint32) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
	out[2] = byte(v >> 16)
	out[3] = byte(v >> 24)
}

func leUint32(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func paddedName(name string) []byte {
	out := make([]byte, 32)
	copy(out, []byte(name))
	return out
}

func concat(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
