// Package bridge is the facade the HTTP front-end (and the CLI) drive: it
// coordinates the manager, device registry, and pairing flow behind the
// four operations the original hardware bridge exposes upward, the Go
// analogue of this codebase's matter.Node coordinating its managers.
package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/manager"
	"github.com/nukibridge/core/pkg/nukiproto"
	"github.com/pion/logging"
)

// ErrNotFound is returned by DeviceByID when no registered device matches.
var ErrNotFound = errors.New("bridge: device not found")

// ErrAlreadyStarted is returned by Start if called more than once.
var ErrAlreadyStarted = errors.New("bridge: already started")

// Identity is the bridge's own identity, presented to every lock during
// pairing and every authenticated command: a human name, a 32-bit app id,
// and the BRIDGE client-type tag. Immutable once constructed.
type Identity struct {
	Name  string
	AppID uint32
}

// Config configures a Bridge.
type Config struct {
	Identity      Identity
	Port          bleport.Port
	LoggerFactory logging.LoggerFactory
}

// Bridge is the core API surface consumed by the HTTP front-end and CLI:
// enumerate devices, query last state, submit a lock action, observe state
// changes, and pair a new device.
type Bridge struct {
	identity Identity
	mgr      *manager.Manager
	log      logging.LeveledLogger

	mu       sync.Mutex
	started  bool
	observer func(DeviceView)
}

// New creates a Bridge. Call Start before serving any request.
func New(cfg Config) *Bridge {
	b := &Bridge{
		identity: cfg.Identity,
		mgr: manager.New(manager.Config{
			Name:          cfg.Identity.Name,
			AppID:         cfg.Identity.AppID,
			Port:          cfg.Port,
			LoggerFactory: cfg.LoggerFactory,
		}),
	}
	if cfg.LoggerFactory != nil {
		b.log = cfg.LoggerFactory.NewLogger("bridge")
	}
	b.mgr.SetNotify(b.onDeviceChanged)
	return b
}

// Start brings up scanning and advertisement demultiplexing.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.mu.Unlock()
	return b.mgr.Start(ctx)
}

// Stop releases the BLE adapter.
func (b *Bridge) Stop() error {
	return b.mgr.Stop()
}

// RegisterDevice adds a persisted device record to the registry, as done
// once per device at startup for every record loaded from configuration.
func (b *Bridge) RegisterDevice(rec device.Record) (*device.Device, error) {
	return b.mgr.AddDevice(rec, device.Config{
		AppID:        b.identity.AppID,
		Name:         b.identity.Name,
		ClientType:   nukiproto.ClientTypeBridge,
		VerifyAuthID: true,
	})
}

// RecordByAddress returns the full persisted identity (including auth id
// and shared-key material) of a registered device, for the caller to save
// to configuration after a successful pairing.
func (b *Bridge) RecordByAddress(address string) (device.Record, error) {
	d, err := b.mgr.DeviceByAddress(address)
	if err != nil {
		return device.Record{}, ErrNotFound
	}
	return d.Record, nil
}

// Devices returns a view of every registered device, in registration order.
func (b *Bridge) Devices() []DeviceView {
	devs := b.mgr.Devices()
	out := make([]DeviceView, 0, len(devs))
	for _, d := range devs {
		out = append(out, newDeviceView(d))
	}
	return out
}

// DeviceByID looks up a device by its Nuki device id (the id field of its
// most recently fetched CONFIG).
func (b *Bridge) DeviceByID(id uint32) (DeviceView, error) {
	d, err := b.mgr.DeviceByID(id)
	if err != nil {
		return DeviceView{}, ErrNotFound
	}
	return newDeviceView(d), nil
}

func (b *Bridge) deviceByID(id uint32) (*device.Device, error) {
	d, err := b.mgr.DeviceByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// Lock submits a LOCK action to the device with the given Nuki id. It
// returns once the REQUEST_DATA(CHALLENGE) that starts the action has been
// written, or with the error that prevented it; it does not wait for the
// lock's STATUS reply.
func (b *Bridge) Lock(ctx context.Context, id uint32) error {
	d, err := b.deviceByID(id)
	if err != nil {
		return err
	}
	return d.Lock(ctx)
}

// Unlock submits an UNLOCK action.
func (b *Bridge) Unlock(ctx context.Context, id uint32) error {
	d, err := b.deviceByID(id)
	if err != nil {
		return err
	}
	return d.Unlock(ctx)
}

// Unlatch submits an UNLATCH action.
func (b *Bridge) Unlatch(ctx context.Context, id uint32) error {
	d, err := b.deviceByID(id)
	if err != nil {
		return err
	}
	return d.Unlatch(ctx)
}

// LockAction submits an arbitrary lock action by its wire code.
func (b *Bridge) LockAction(ctx context.Context, id uint32, action nukiproto.Action) error {
	d, err := b.deviceByID(id)
	if err != nil {
		return err
	}
	return d.LockAction(ctx, action)
}

// SetStateObserver replaces the prior observer. It is called with every
// registered device's current view once immediately (matching the
// original bridge's newstate_callback setter semantics), then again on
// every committed state/config change.
func (b *Bridge) SetStateObserver(fn func(DeviceView)) {
	b.mu.Lock()
	b.observer = fn
	b.mu.Unlock()

	if fn == nil {
		return
	}
	for _, v := range b.Devices() {
		fn(v)
	}
}

func (b *Bridge) onDeviceChanged(d *device.Device) {
	b.mu.Lock()
	fn := b.observer
	b.mu.Unlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Errorf("state observer panicked: %v", r)
		}
	}()
	fn(newDeviceView(d))
}

// Pair runs the §4.3 pairing state machine against a device record missing
// auth_id/shared-key material. The device is registered before the
// handshake starts and stays registered if pairing fails. onComplete
// receives the finished device view or an error.
func (b *Bridge) Pair(ctx context.Context, address string, bridgePub, bridgeSec [32]byte, onComplete func(DeviceView, error)) error {
	d, err := b.RegisterDevice(device.Record{
		Address:          address,
		Kind:             nukiproto.DeviceKindUnknown,
		BridgePublicKey:  bridgePub,
		BridgePrivateKey: bridgeSec,
	})
	if err != nil {
		return err
	}

	return d.Pair(ctx, func(err error) {
		if err != nil {
			onComplete(DeviceView{}, err)
			return
		}
		onComplete(newDeviceView(d), nil)
	})
}
