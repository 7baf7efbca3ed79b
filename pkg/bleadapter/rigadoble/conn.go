package rigadoble

import (
	"fmt"
	"sync"

	"github.com/pion/logging"
	"github.com/rigado/ble"
)

// conn adapts a connected ble.Client plus its discovered profile to
// bleport.Conn, resolving characteristic UUIDs to ble handles on demand and
// caching them since a device's GATT table never changes across the
// lifetime of one connection.
type conn struct {
	client  ble.Client
	profile *ble.Profile
	log     logging.LeveledLogger

	mu    sync.Mutex
	chars map[string]*ble.Characteristic
}

func (c *conn) Address() string {
	return c.client.Addr().String()
}

func (c *conn) IsConnected() bool {
	select {
	case <-c.client.Disconnected():
		return false
	default:
		return true
	}
}

func (c *conn) Disconnect() error {
	return c.client.CancelConnection()
}

func (c *conn) characteristic(uuid string) (*ble.Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chars == nil {
		c.chars = map[string]*ble.Characteristic{}
	}
	if ch, ok := c.chars[uuid]; ok {
		return ch, nil
	}

	want, err := ble.Parse(uuid)
	if err != nil {
		return nil, fmt.Errorf("rigadoble: parse uuid %s: %w", uuid, err)
	}
	for _, service := range c.profile.Services {
		for _, characteristic := range service.Characteristics {
			if characteristic.UUID.Equal(want) {
				c.chars[uuid] = characteristic
				return characteristic, nil
			}
		}
	}
	return nil, nil
}

func (c *conn) HasCharacteristic(uuid string) (bool, error) {
	ch, err := c.characteristic(uuid)
	if err != nil {
		return false, err
	}
	return ch != nil, nil
}

func (c *conn) WriteCharacteristic(uuid string, data []byte) error {
	ch, err := c.characteristic(uuid)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("rigadoble: characteristic %s not found", uuid)
	}
	return c.client.WriteCharacteristic(ch, data, false)
}

func (c *conn) SubscribeNotify(uuid string, fn func(data []byte)) error {
	ch, err := c.characteristic(uuid)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("rigadoble: characteristic %s not found", uuid)
	}
	return c.client.Subscribe(ch, false, func(data []byte) {
		fn(data)
	})
}
