package device

import (
	"context"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/codec"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// retryBackoff is the pause between failed send attempts, matching the
// original bridge's fixed 200ms retry delay.
const retryBackoff = 200 * time.Millisecond

// sendPairingFrame builds and writes an unencrypted pairing-channel frame,
// retrying up to d.Retry times with a reconnect between attempts.
func (d *Device) sendPairingFrame(ctx context.Context, cmd nukiproto.Command, payload []byte) error {
	frame := codec.EncodeFrame(cmd, payload)
	return d.send(ctx, func(conn bleport.Conn) error {
		pairingChar, _ := nukiproto.CharacteristicsFor(d.Kind)
		return conn.WriteCharacteristic(pairingChar, frame)
	})
}

// sendEncryptedFrame builds and writes an encrypted service-channel frame.
func (d *Device) sendEncryptedFrame(ctx context.Context, cmd nukiproto.Command, payload []byte) error {
	d.mu.Lock()
	key := d.sharedKey
	hasKey := d.hasSharedKey
	authID := d.AuthID
	d.mu.Unlock()

	if !hasKey {
		return ErrNotPaired
	}

	frame, err := codec.EncodeEncryptedFrame(key, authID, cmd, payload)
	if err != nil {
		return err
	}

	return d.send(ctx, func(conn bleport.Conn) error {
		_, serviceChar := nukiproto.CharacteristicsFor(d.Kind)
		return conn.WriteCharacteristic(serviceChar, frame)
	})
}

// send runs write through the task queue, retrying on failure with a
// reconnect between attempts. The last error is reported as ErrSendFailed
// if every attempt fails.
func (d *Device) send(ctx context.Context, write func(conn bleport.Conn) error) error {
	return d.queue.Run(ctx, func(ctx context.Context) error {
		var lastErr error
		for attempt := 1; attempt <= d.Retry; attempt++ {
			if d.log != nil {
				d.log.Debugf("send attempt %d/%d", attempt, d.Retry)
			}
			if err := d.connect(ctx); err != nil {
				lastErr = err
				time.Sleep(retryBackoff)
				continue
			}

			d.mu.Lock()
			conn := d.conn
			d.mu.Unlock()
			if conn == nil {
				lastErr = ErrNoConnection
				time.Sleep(retryBackoff)
				continue
			}

			if err := write(conn); err != nil {
				lastErr = err
				time.Sleep(retryBackoff)
				continue
			}
			return nil
		}
		if d.log != nil {
			d.log.Errorf("send failed after %d attempts: %v", d.Retry, lastErr)
		}
		return ErrSendFailed
	})
}
