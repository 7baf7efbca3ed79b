// Package rigadoble is the concrete bleport.Port backed by
// github.com/rigado/ble, the HCI-socket BLE stack used against a real
// Bluetooth adapter. It translates ble's advertisement/client API into the
// bleport.Scanner/Dialer interfaces the rest of this module programs
// against, the way this codebase's transport adapters sit below a port
// interface and keep the concrete driver out of the protocol layers.
package rigadoble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/pion/logging"
	"github.com/rigado/ble"
	"github.com/rigado/ble/linux"
)

// Adapter is a bleport.Port bound to one HCI device (e.g. "hci0").
type Adapter struct {
	deviceName string
	log        logging.LeveledLogger

	mu      sync.Mutex
	dev     ble.Device
	scanCtx context.Context
	cancel  context.CancelFunc
	advCh   chan bleport.Advertisement
}

// New creates an Adapter. hciDevice names the local HCI device, e.g. "hci0".
func New(hciDevice string, loggerFactory logging.LoggerFactory) *Adapter {
	a := &Adapter{deviceName: hciDevice}
	if loggerFactory != nil {
		a.log = loggerFactory.NewLogger("rigadoble")
	}
	return a
}

func (a *Adapter) device() (ble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev != nil {
		return a.dev, nil
	}
	dev, err := linux.NewDeviceWithName(a.deviceName)
	if err != nil {
		return nil, fmt.Errorf("rigadoble: open %s: %w", a.deviceName, err)
	}
	ble.SetDefaultDevice(dev)
	a.dev = dev
	return dev, nil
}

// Start begins scanning for every advertisement (duplicates included, since
// RSSI and manufacturer data both change between reports for the same
// device). Reports are delivered on the channel returned by Advertisements.
func (a *Adapter) Start(ctx context.Context) error {
	dev, err := a.device()
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.scanCtx != nil {
		a.mu.Unlock()
		return nil
	}
	scanCtx, cancel := context.WithCancel(ctx)
	a.scanCtx = scanCtx
	a.cancel = cancel
	ch := make(chan bleport.Advertisement, 32)
	a.advCh = ch
	a.mu.Unlock()

	go func() {
		// ch is only ever written to by this goroutine, so closing it here
		// once Scan returns (rather than in Stop) cannot race a send.
		defer close(ch)
		err := dev.Scan(scanCtx, true, func(adv ble.Advertisement) {
			deliver(ch, bleport.Advertisement{
				Address:          adv.Addr().String(),
				RSSI:             adv.RSSI(),
				ManufacturerData: parseManufacturerData(adv.ManufacturerData()),
			}, a.log)
		})
		if err != nil && scanCtx.Err() == nil && a.log != nil {
			a.log.Errorf("scan: %v", err)
		}
	}()
	return nil
}

// Stop ends the current scan, if any. The scan goroutine closes advCh once
// dev.Scan actually returns; Stop only signals it to do so.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.scanCtx = nil
	a.cancel = nil
	a.advCh = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Advertisements returns the channel advertisement reports are delivered on.
// Only valid between a successful Start and the matching Stop.
func (a *Adapter) Advertisements() <-chan bleport.Advertisement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.advCh
}

func deliver(ch chan bleport.Advertisement, adv bleport.Advertisement, log logging.LeveledLogger) {
	select {
	case ch <- adv:
	default:
		if log != nil {
			log.Warn("advertisement channel full, dropping report")
		}
	}
}

// Dial connects to the peripheral at address.
func (a *Adapter) Dial(ctx context.Context, address string, timeout time.Duration) (bleport.Conn, error) {
	dev, err := a.device()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cln, err := dev.Dial(dialCtx, ble.NewAddr(address))
	if err != nil {
		return nil, fmt.Errorf("rigadoble: dial %s: %w", address, err)
	}

	profile, err := cln.DiscoverProfile(true)
	if err != nil {
		cln.CancelConnection()
		return nil, fmt.Errorf("rigadoble: discover profile on %s: %w", address, err)
	}

	return &conn{client: cln, profile: profile, log: a.log}, nil
}

func parseManufacturerData(raw []byte) map[uint16][]byte {
	// Manufacturer-specific AD data is laid out as a 2-byte little-endian
	// company id followed by the payload; ble's Advertisement already
	// strips the AD type/length octets, so raw is just that tuple.
	out := map[uint16][]byte{}
	if len(raw) < 2 {
		return out
	}
	id := uint16(raw[0]) | uint16(raw[1])<<8
	out[id] = append([]byte(nil), raw[2:]...)
	return out
}
