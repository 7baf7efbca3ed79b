package device

import (
	"context"
	"sync"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
	"github.com/pion/logging"
)

// DefaultRetry is the number of attempts a device makes to deliver a
// command before giving up, matching the original bridge's default.
const DefaultRetry = 3

// DefaultConnectionTimeout bounds how long a single connect attempt may
// take.
const DefaultConnectionTimeout = 10 * time.Second

// DefaultCommandTimeout bounds how long a full command round-trip
// (send + awaited reply) may take before it is abandoned.
const DefaultCommandTimeout = 30 * time.Second

// openerStateResetDelay is how long after an opener lock action completes
// the bridge waits before clearing last_lock_action_completion_status and
// re-notifying observers, mirroring the opener's auto-reverting UI state.
const openerStateResetDelay = 30 * time.Second

// Enqueuer serializes BLE operations across every device sharing a single
// adapter. A device never talks to the radio directly; every connect/write
// goes through Enqueuer.Run so a task queue can arbitrate against scanning
// and other devices' in-flight operations.
type Enqueuer interface {
	Run(ctx context.Context, task func(context.Context) error) error
}

// NotifyFunc is called whenever a device's observable state changes
// (a new KEYTURNER_STATES or CONFIG has been merged in).
type NotifyFunc func(d *Device)

// Record is the persisted identity of a paired device: everything needed
// to reconnect and resume encrypted communication without repeating the
// pairing handshake.
type Record struct {
	Address string
	// Kind should be DeviceKindUnknown for a device discovered but not yet
	// connected; connect() probes and fills it in on first connect.
	Kind              nukiproto.DeviceKind
	AuthID            uint32
	NukiPublicKey     [32]byte
	BridgePublicKey   nukicrypto.PublicKey
	BridgePrivateKey  nukicrypto.SecretKey
	Retry             int
	ConnectionTimeout time.Duration
	CommandTimeout    time.Duration
}

// Config bundles the identity this bridge presents during pairing and
// lock-action requests.
type Config struct {
	AppID      uint32
	Name       string
	ClientType nukiproto.ClientType

	// VerifyAuthID gates whether the AUTH_ID authenticator the lock
	// returns during pairing is verified against H_k(auth_id||uuid||n_lock||n3)
	// before continuing. The zero value (false) skips the check, as the
	// original bridge does; bridge.RegisterDevice sets it to true.
	VerifyAuthID bool
}

// Device is a single paired (or pairing) Nuki lock or opener: its identity,
// connection, and the pairing/command-dispatch state machine driving its
// BLE traffic.
type Device struct {
	Record
	bridgeCfg Config

	queue  Enqueuer
	dialer bleport.Dialer
	log    logging.LeveledLogger

	mu           sync.Mutex
	conn         bleport.Conn
	sharedKey    nukicrypto.SharedKey
	hasSharedKey bool
	lastState    *nukiproto.KeyturnerState
	config       *nukiproto.Config
	pending      pendingOp
	pairingCB    func(*Device, error)
	lastIBeacon  time.Time
	resetTimer   *time.Timer
	notify       NotifyFunc
	rssi         int
}

// New creates a device session for the given record. dialer performs
// connects, queue serializes every BLE operation this device issues, and
// loggerFactory (optional) builds a per-device logger.
func New(rec Record, cfg Config, dialer bleport.Dialer, queue Enqueuer, loggerFactory logging.LoggerFactory) *Device {
	if rec.Retry == 0 {
		rec.Retry = DefaultRetry
	}
	if rec.ConnectionTimeout == 0 {
		rec.ConnectionTimeout = DefaultConnectionTimeout
	}
	if rec.CommandTimeout == 0 {
		rec.CommandTimeout = DefaultCommandTimeout
	}

	d := &Device{
		Record:    rec,
		bridgeCfg: cfg,
		dialer:    dialer,
		queue:     queue,
	}
	if loggerFactory != nil {
		d.log = loggerFactory.NewLogger("device")
	}
	if hasKeyMaterial(rec) {
		d.sharedKey = nukicrypto.DeriveSharedKey(nukicrypto.PublicKey(rec.NukiPublicKey), rec.BridgePrivateKey)
		d.hasSharedKey = true
	}
	return d
}

func hasKeyMaterial(rec Record) bool {
	var zero [32]byte
	return rec.NukiPublicKey != zero
}

// SetNotify installs the callback invoked after the device's observable
// state changes (config and last state both present, as in the original
// bridge's nuki_newstate hook).
func (d *Device) SetNotify(fn NotifyFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify = fn
}

// LastState returns the most recently received KEYTURNER_STATES, or nil if
// none has arrived yet.
func (d *Device) LastState() *nukiproto.KeyturnerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastState
}

// ConfigSnapshot returns the most recently received CONFIG, or nil.
func (d *Device) ConfigSnapshot() *nukiproto.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// RSSI returns the signal strength of the most recent advertisement seen
// from this device.
func (d *Device) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

// SetRSSI records the signal strength of a freshly observed advertisement.
func (d *Device) SetRSSI(rssi int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rssi = rssi
}

// JustGotBeacon reports whether this device was already seen in the last
// second, debouncing the flurry of advertisements a Nuki device emits.
func (d *Device) JustGotBeacon() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if d.lastIBeacon.IsZero() {
		d.lastIBeacon = now
		return false
	}
	seenRecently := now.Sub(d.lastIBeacon) <= time.Second
	if !seenRecently {
		d.lastIBeacon = now
	}
	return seenRecently
}

func (d *Device) maybeNotify() {
	d.mu.Lock()
	ready := d.config != nil && d.lastState != nil
	fn := d.notify
	d.mu.Unlock()
	if ready && fn != nil {
		fn(d)
	}
}
