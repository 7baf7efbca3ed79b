package bleport

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSuchPeer is returned by FakePort.Dial when no peer has been
// registered for the given address via AddPeer.
var ErrNoSuchPeer = errors.New("bleport: no fake peer registered for address")

// FakePort is an in-memory Port implementation for tests: it never touches
// real Bluetooth hardware. Callers register peers with AddPeer, then drive
// the scenario by pushing advertisements via Advertise and notifications
// via FakeConn.Deliver.
type FakePort struct {
	mu      sync.Mutex
	peers   map[string]*FakeConn
	advCh   chan Advertisement
	started bool
}

// NewFakePort creates an empty fake port.
func NewFakePort() *FakePort {
	return &FakePort{
		peers: make(map[string]*FakeConn),
	}
}

// AddPeer registers a fake peripheral at address, returning the FakeConn a
// test can use to script its characteristics and notifications.
func (p *FakePort) AddPeer(address string) *FakeConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := &FakeConn{address: address, characteristics: make(map[string]bool), subs: make(map[string]NotifyFunc)}
	p.peers[address] = c
	return c
}

// Start implements Scanner.
func (p *FakePort) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advCh = make(chan Advertisement, 16)
	p.started = true
	return nil
}

// Stop implements Scanner.
func (p *FakePort) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		close(p.advCh)
		p.started = false
	}
	return nil
}

// Advertisements implements Scanner.
func (p *FakePort) Advertisements() <-chan Advertisement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advCh
}

// Advertise pushes a synthetic advertisement report, as if received over
// the air during an active scan.
func (p *FakePort) Advertise(adv Advertisement) {
	p.mu.Lock()
	ch := p.advCh
	started := p.started
	p.mu.Unlock()
	if started {
		ch <- adv
	}
}

// Dial implements Dialer.
func (p *FakePort) Dial(ctx context.Context, address string, timeout time.Duration) (Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.peers[address]
	if !ok {
		return nil, ErrNoSuchPeer
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return c, nil
}

// FakeConn is an in-memory Conn used by FakePort and directly in unit
// tests that exercise a device session without a port at all.
type FakeConn struct {
	address         string
	mu              sync.Mutex
	connected       bool
	characteristics map[string]bool
	subs            map[string]NotifyFunc
	Written         []WrittenRecord

	// OnWrite, when set, runs synchronously after every recorded write,
	// letting a test script a peripheral's reply to each outgoing frame.
	OnWrite func(characteristic string, data []byte)
}

// WrittenRecord captures one WriteCharacteristic call for test assertions.
type WrittenRecord struct {
	Characteristic string
	Data           []byte
}

// SetCharacteristic marks uuid as present (or absent) on this fake
// peripheral, controlling HasCharacteristic's answer.
func (c *FakeConn) SetCharacteristic(uuid string, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.characteristics[uuid] = present
}

// Deliver invokes the handler subscribed to uuid with data, simulating an
// incoming GATT notification.
func (c *FakeConn) Deliver(uuid string, data []byte) {
	c.mu.Lock()
	fn := c.subs[uuid]
	c.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (c *FakeConn) Address() string { return c.address }

func (c *FakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *FakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *FakeConn) HasCharacteristic(uuid string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.characteristics[uuid], nil
}

func (c *FakeConn) WriteCharacteristic(uuid string, data []byte) error {
	c.mu.Lock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.Written = append(c.Written, WrittenRecord{Characteristic: uuid, Data: cp})
	onWrite := c.OnWrite
	c.mu.Unlock()

	if onWrite != nil {
		onWrite(uuid, cp)
	}
	return nil
}

func (c *FakeConn) SubscribeNotify(uuid string, fn NotifyFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[uuid] = fn
	return nil
}
