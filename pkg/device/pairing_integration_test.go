package device

import (
	"context"
	"testing"
	"time"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/codec"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// syncEnqueuer runs every task inline, standing in for a real task queue in
// tests that don't care about scan arbitration.
type syncEnqueuer struct{}

func (syncEnqueuer) Run(ctx context.Context, task func(context.Context) error) error {
	return task(ctx)
}

// lockSim plays the lock side of the pairing handshake and a subsequent
// lock action against a bleport.FakeConn, driven entirely off WriteCharacteristic
// calls via OnWrite.
type lockSim struct {
	conn   *bleport.FakeConn
	pubKey nukicrypto.PublicKey
	secKey nukicrypto.SecretKey

	bridgePub nukicrypto.PublicKey
	shared    nukicrypto.SharedKey

	authID uint32
	uuid   [16]byte
	n1, n2 [32]byte

	lockPosition uint8
	updateCount  uint8
}

func newLockSim(conn *bleport.FakeConn) *lockSim {
	pub, sec, err := nukicrypto.GenerateKeypair()
	if err != nil {
		panic(err)
	}
	return &lockSim{conn: conn, pubKey: pub, secKey: sec, authID: 0xAABBCCDD, lockPosition: uint8(nukiproto.LockStateLocked)}
}

func (s *lockSim) onPairingWrite(characteristic string, data []byte) {
	cmd, payload, err := codec.DecodeFrame(data)
	if err != nil {
		return
	}
	switch cmd {
	case nukiproto.CommandRequestData:
		// Only REQUEST_DATA(PUBLIC_KEY) is exercised here.
		s.conn.Deliver(characteristic, codec.EncodeFrame(nukiproto.CommandPublicKey, codec.EncodePublicKey(s.pubKey)))
	case nukiproto.CommandPublicKey:
		var bridgePub [32]byte
		copy(bridgePub[:], payload)
		s.bridgePub = bridgePub
		s.shared = nukicrypto.DeriveSharedKey(s.bridgePub, s.secKey)
		nonce, _ := nukicrypto.Random32()
		s.n1 = nonce
		s.conn.Deliver(characteristic, codec.EncodeFrame(nukiproto.CommandChallenge, nonce[:]))
	case nukiproto.CommandAuthAuthenticator:
		nonce, _ := nukicrypto.Random32()
		s.n2 = nonce
		s.conn.Deliver(characteristic, codec.EncodeFrame(nukiproto.CommandChallenge, nonce[:]))
	case nukiproto.CommandAuthData:
		var n3 [32]byte
		copy(n3[:], payload[len(payload)-32:])

		for i := range s.uuid {
			s.uuid[i] = byte(i + 1)
		}
		var authIDBytes [4]byte
		authIDBytes[0] = byte(s.authID)
		authIDBytes[1] = byte(s.authID >> 8)
		authIDBytes[2] = byte(s.authID >> 16)
		authIDBytes[3] = byte(s.authID >> 24)
		n4, _ := nukicrypto.Random32()
		msg := concat(authIDBytes[:], s.uuid[:], n4[:], n3[:])
		auth := nukicrypto.HMACSHA256(s.sharedKeyBytes(), msg)
		resp := concat(auth[:], authIDBytes[:], s.uuid[:], n4[:])
		s.conn.Deliver(characteristic, codec.EncodeFrame(nukiproto.CommandAuthID, resp))
	case nukiproto.CommandAuthIDConfirm:
		s.conn.Deliver(characteristic, codec.EncodeFrame(nukiproto.CommandStatus, []byte{byte(nukiproto.StatusCompleted)}))
	}
}

func (s *lockSim) sharedKeyBytes() []byte {
	out := make([]byte, len(s.shared))
	copy(out, s.shared[:])
	return out
}

func (s *lockSim) onServiceWrite(characteristic string, data []byte) {
	_, cmd, payload, err := codec.DecodeEncryptedFrame(s.shared, data)
	if err != nil {
		return
	}
	switch cmd {
	case nukiproto.CommandRequestData:
		nonce, _ := nukicrypto.Random32()
		frame, _ := codec.EncodeEncryptedFrame(s.shared, s.authID, nukiproto.CommandChallenge, nonce[:])
		s.conn.Deliver(characteristic, frame)
	case nukiproto.CommandLockAction:
		action := nukiproto.Action(payload[0])
		switch action {
		case nukiproto.ActionLock:
			s.lockPosition = uint8(nukiproto.LockStateLocked)
		case nukiproto.ActionUnlock:
			s.lockPosition = uint8(nukiproto.LockStateUnlocked)
		case nukiproto.ActionUnlatch:
			s.lockPosition = uint8(nukiproto.LockStateUnlatched)
		}
		s.updateCount++
		state := make([]byte, 21)
		state[0] = byte(nukiproto.NukiStateDoorMode)
		state[1] = s.lockPosition
		copy(state[3:10], codec.EncodeDateTime(time.Now()))
		state[13] = s.updateCount
		frame, _ := codec.EncodeEncryptedFrame(s.shared, s.authID, nukiproto.CommandKeyturnerStates, state)
		s.conn.Deliver(characteristic, frame)
	}
}

func TestDevice_PairAndLock(t *testing.T) {
	port := bleport.NewFakePort()
	conn := port.AddPeer("AA:BB:CC:DD:EE:FF")
	conn.SetCharacteristic(nukiproto.OpenerPairingChar, false)

	sim := newLockSim(conn)
	conn.OnWrite = func(characteristic string, data []byte) {
		switch characteristic {
		case nukiproto.SmartLockPairingChar:
			sim.onPairingWrite(characteristic, data)
		case nukiproto.SmartLockServiceChar:
			sim.onServiceWrite(characteristic, data)
		}
	}

	bridgePub, bridgeSec, err := nukicrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate bridge keypair: %v", err)
	}

	rec := Record{
		Address:          "AA:BB:CC:DD:EE:FF",
		Kind:             nukiproto.DeviceKindUnknown,
		BridgePublicKey:  bridgePub,
		BridgePrivateKey: bridgeSec,
	}
	cfg := Config{AppID: 1, Name: "test-bridge", ClientType: nukiproto.ClientTypeBridge, VerifyAuthID: true}

	d := New(rec, cfg, port, syncEnqueuer{}, nil)

	done := make(chan error, 1)
	ctx := context.Background()
	if err := d.Pair(ctx, func(err error) { done <- err }); err != nil {
		t.Fatalf("Pair: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("pairing failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pairing did not complete in time")
	}

	if d.AuthID == 0 {
		t.Fatal("expected a nonzero auth id after pairing")
	}
	if !d.hasSharedKey {
		t.Fatal("expected shared key to be derived after pairing")
	}

	if err := d.Lock(ctx); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := d.LastState()
		if st != nil && st.LockPosition == uint8(nukiproto.LockStateLocked) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lock action did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
