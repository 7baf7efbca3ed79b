// Package manager owns the BLE adapter and the registry of paired devices:
// it demultiplexes advertisement reports onto the matching device, triggers
// first-contact kind detection, and serializes every device's BLE traffic
// through one task queue per adapter.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukiproto"
	"github.com/nukibridge/core/pkg/taskqueue"
	"github.com/pion/logging"
)

// eventFlagMask is the low bit of an iBeacon advertisement's last
// manufacturer-data byte; the original bridge treats it as "something
// changed, fetch state now" rather than waiting for the next poll.
const eventFlagMask = 0x01

// nukiIBeaconPrefix is the first manufacturer-data byte of a Nuki iBeacon
// advertisement; anything else (including HomeKit broadcasts, which share
// Apple's company id) is ignored.
const nukiIBeaconPrefix = 0x02

// Config configures a Manager.
type Config struct {
	Name          string
	AppID         uint32
	Port          bleport.Port
	LoggerFactory logging.LoggerFactory
}

// Manager is the device registry and advertisement router for one BLE
// adapter.
type Manager struct {
	name          string
	appID         uint32
	port          bleport.Port
	queue         *taskqueue.Queue
	log           logging.LeveledLogger
	loggerFactory logging.LoggerFactory

	mu      sync.Mutex
	byAddr  map[string]*device.Device
	order   []string
	notify  func(*device.Device)
	started bool
}

// New creates a Manager bound to cfg.Port. Call Start before registering an
// advertisement stream or running any device command.
func New(cfg Config) *Manager {
	m := &Manager{
		name:          cfg.Name,
		appID:         cfg.AppID,
		port:          cfg.Port,
		byAddr:        make(map[string]*device.Device),
		loggerFactory: cfg.LoggerFactory,
	}
	if cfg.LoggerFactory != nil {
		m.log = cfg.LoggerFactory.NewLogger("manager")
	}
	m.queue = taskqueue.New(cfg.Port, cfg.LoggerFactory)
	m.queue.SetOnIdle(m.disconnectAll)
	return m
}

// disconnectAll tears down every registered device's BLE link; the task
// queue calls this right before resuming scanning after an idle timeout, so
// the adapter does not hold a stale connection across the switch back to
// scanning.
func (m *Manager) disconnectAll() {
	for _, d := range m.Devices() {
		if err := d.Disconnect(); err != nil && m.log != nil {
			m.log.Debugf("disconnect on idle: %v", err)
		}
	}
}

// SetNotify installs the callback invoked whenever any registered device's
// observable state changes.
func (m *Manager) SetNotify(fn func(*device.Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// AddDevice registers a device record, wiring its state-change notification
// through to the manager's own observer. Kind defaults to
// nukiproto.DeviceKindUnknown in rec unless the caller already knows it.
func (m *Manager) AddDevice(rec device.Record, dcfg device.Config) (*device.Device, error) {
	m.mu.Lock()
	if _, exists := m.byAddr[rec.Address]; exists {
		m.mu.Unlock()
		return nil, ErrDuplicateAddress
	}
	m.mu.Unlock()

	if dcfg.AppID == 0 {
		dcfg.AppID = m.appID
	}
	if dcfg.Name == "" {
		dcfg.Name = m.name
	}

	d := device.New(rec, dcfg, m.port, m.queue, m.loggerFactory)
	d.SetNotify(func(d *device.Device) {
		m.mu.Lock()
		fn := m.notify
		m.mu.Unlock()
		if fn != nil {
			fn(d)
		}
	})

	m.mu.Lock()
	m.byAddr[rec.Address] = d
	m.order = append(m.order, rec.Address)
	m.mu.Unlock()

	return d, nil
}

// Devices returns every registered device in registration order.
func (m *Manager) Devices() []*device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*device.Device, 0, len(m.order))
	for _, addr := range m.order {
		out = append(out, m.byAddr[addr])
	}
	return out
}

// DeviceByAddress looks up a registered device by its BLE address.
func (m *Manager) DeviceByAddress(address string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byAddr[address]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// DeviceByID looks up a registered device by its Nuki device id, read from
// its most recently fetched config. Devices never configured yet cannot be
// found this way.
func (m *Manager) DeviceByID(id uint32) (*device.Device, error) {
	for _, d := range m.Devices() {
		if cfg := d.ConfigSnapshot(); cfg != nil && cfg.ID == id {
			return d, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Start starts the task queue (which brings up scanning) and begins
// demultiplexing advertisement reports onto registered devices until ctx is
// canceled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.queue.Start(ctx); err != nil {
		return err
	}

	go m.demux(ctx)
	return nil
}

// Stop stops the task queue.
func (m *Manager) Stop() error {
	return m.queue.Stop()
}

func (m *Manager) demux(ctx context.Context) {
	for {
		ch := m.port.Advertisements()
		var adv bleport.Advertisement
		ok := false
		if ch != nil {
			select {
			case <-ctx.Done():
				return
			case adv, ok = <-ch:
			}
		}
		if !ok {
			// Scanning is paused while a task runs; the queue resumes it
			// with a fresh channel once idle, so poll until it is back.
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		m.handleAdvertisement(ctx, adv)
	}
}

func (m *Manager) handleAdvertisement(ctx context.Context, adv bleport.Advertisement) {
	d, err := m.DeviceByAddress(adv.Address)
	if err != nil {
		return
	}

	data, ok := adv.NukiManufacturerData()
	if !ok {
		return
	}
	if len(data) == 0 || data[0] != nukiIBeaconPrefix {
		return
	}
	if d.JustGotBeacon() {
		if m.log != nil {
			m.log.Debugf("ignoring duplicate beacon from %s", adv.Address)
		}
		return
	}
	d.SetRSSI(adv.RSSI)

	if d.Kind == nukiproto.DeviceKindUnknown {
		go func() {
			connectCtx, cancel := context.WithTimeout(context.Background(), d.ConnectionTimeout)
			defer cancel()
			if err := d.Connect(connectCtx); err != nil && m.log != nil {
				m.log.Errorf("first-contact connect to %s: %v", adv.Address, err)
			}
		}()
		return
	}

	eventFlag := data[len(data)-1]&eventFlagMask != 0
	go func() {
		cmdCtx, cancel := context.WithTimeout(context.Background(), d.CommandTimeout)
		defer cancel()
		switch {
		case d.LastState() == nil || eventFlag:
			_ = d.UpdateState(cmdCtx)
		case d.ConfigSnapshot() == nil:
			_ = d.GetConfig(cmdCtx)
		}
	}()
}
