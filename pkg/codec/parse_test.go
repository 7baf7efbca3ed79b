package codec

import (
	"testing"
	"time"

	"github.com/nukibridge/core/pkg/nukiproto"
)

func TestParseKeyturnerState(t *testing.T) {
	payload := make([]byte, keyturnerStatesLen)
	payload[0] = byte(nukiproto.NukiStateDoorMode)
	payload[1] = byte(nukiproto.LockStateLocked)
	payload[2] = 0x06 // trigger: button

	// current_time: 2024-03-15 13:45:30
	payload[3], payload[4] = 0xE8, 0x07 // 2024 LE
	payload[5] = 3
	payload[6] = 15
	payload[7] = 13
	payload[8] = 45
	payload[9] = 30

	// timezone_offset = 60 minutes
	payload[10], payload[11] = 60, 0

	payload[12] = 0b01011001 // critical battery state
	payload[13] = 7          // config update count
	payload[14] = 0          // lock_n_go_timer
	payload[15] = byte(nukiproto.ActionLock)
	payload[16] = 0x02
	payload[17] = 0x00
	payload[18] = byte(nukiproto.DoorSensorDoorClosed)
	payload[19], payload[20] = 1, 0 // nightmode_active

	state, err := ParseKeyturnerState(payload)
	if err != nil {
		t.Fatalf("ParseKeyturnerState: %v", err)
	}

	if state.LockState() != nukiproto.LockStateLocked {
		t.Errorf("LockState = %v, want Locked", state.LockState())
	}
	if !state.IsBatteryCritical() {
		t.Error("IsBatteryCritical = false, want true")
	}
	if state.IsBatteryCharging() {
		t.Error("IsBatteryCharging = true, want false")
	}
	if got := state.BatteryPercentage(); got != 44 {
		t.Errorf("BatteryPercentage = %d, want 44", got)
	}
	want := time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC)
	if !state.CurrentTime.Equal(want) {
		t.Errorf("CurrentTime = %v, want %v", state.CurrentTime, want)
	}
	if state.DoorSensorState != nukiproto.DoorSensorDoorClosed {
		t.Errorf("DoorSensorState = %v, want DoorClosed", state.DoorSensorState)
	}
}

func TestParseKeyturnerState_Truncated(t *testing.T) {
	_, err := ParseKeyturnerState(make([]byte, keyturnerStatesLen-1))
	if err != ErrTruncatedPayload {
		t.Fatalf("err = %v, want ErrTruncatedPayload", err)
	}
}

func TestParseConfig_Lock(t *testing.T) {
	payload := make([]byte, configLockLen)
	off := 0
	payload[off] = 0x01
	off += 4 // id
	copy(payload[off:off+32], []byte("Front Door"))
	off += 32
	off += 4          // latitude
	off += 4          // longitude
	payload[off] = 1  // auto_unlatch
	off++
	payload[off] = 1 // pairing_enabled
	off++
	payload[off] = 1 // button_enabled
	off++
	payload[off] = 1 // led_enabled
	off++
	payload[off] = 5 // led_brightness
	off++
	off += 7 // current_time
	off += 2 // timezone_offset
	off++    // dst_mode
	off++    // has_fob
	off += 3 // fob actions
	payload[off] = 1 // single_lock (lock kind byte)
	off++
	payload[off] = 2 // advertising_mode
	off++
	payload[off] = 1 // has_keypad
	off++
	payload[off], payload[off+1], payload[off+2] = 2, 3, 1 // firmware
	off += 3
	payload[off], payload[off+1] = 3, 1 // hardware
	off += 2
	payload[off] = 1 // homekit_status
	off++
	payload[off] = 42
	payload[off+1] = 0 // timezone_id

	cfg, err := ParseConfig(payload, nukiproto.DeviceKindSmartLock12)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Name != "Front Door" {
		t.Errorf("Name = %q, want %q", cfg.Name, "Front Door")
	}
	if !cfg.SingleLock {
		t.Error("SingleLock = false, want true")
	}
	if cfg.FirmwareVersion != "2.3.1" {
		t.Errorf("FirmwareVersion = %q, want %q", cfg.FirmwareVersion, "2.3.1")
	}
	if cfg.HardwareRevision != "3.1" {
		t.Errorf("HardwareRevision = %q, want %q", cfg.HardwareRevision, "3.1")
	}
	if cfg.TimezoneID != 42 {
		t.Errorf("TimezoneID = %d, want 42", cfg.TimezoneID)
	}
}

func TestParseConfig_Opener(t *testing.T) {
	payload := make([]byte, configOpenerLen)
	off := 0
	payload[off] = 0x02
	off += 4 // id
	copy(payload[off:off+32], []byte("Garage Opener"))
	off += 32
	off += 4         // latitude
	off += 4         // longitude
	payload[off] = 1 // auto_unlatch
	off++
	payload[off] = 1 // pairing_enabled
	off++
	payload[off] = 1 // button_enabled
	off++
	payload[off] = 1 // led_enabled
	off++
	// no led_brightness
	off += 7 // current_time
	off += 2 // timezone_offset
	off++    // dst_mode
	off++    // has_fob
	off += 3 // fob actions
	payload[off] = 3 // operating_mode (opener kind byte)
	off++
	payload[off] = 2 // advertising_mode
	off++
	payload[off] = 1 // has_keypad
	off++
	payload[off], payload[off+1], payload[off+2] = 2, 3, 1 // firmware
	off += 3
	payload[off], payload[off+1] = 3, 1 // hardware
	off += 2
	// no homekit_status
	payload[off] = 42
	payload[off+1] = 0 // timezone_id

	cfg, err := ParseConfig(payload, nukiproto.DeviceKindOpener)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Name != "Garage Opener" {
		t.Errorf("Name = %q, want %q", cfg.Name, "Garage Opener")
	}
	if cfg.OperatingMode != 3 {
		t.Errorf("OperatingMode = %d, want 3", cfg.OperatingMode)
	}
	if cfg.FirmwareVersion != "2.3.1" {
		t.Errorf("FirmwareVersion = %q, want %q", cfg.FirmwareVersion, "2.3.1")
	}
	if cfg.TimezoneID != 42 {
		t.Errorf("TimezoneID = %d, want 42", cfg.TimezoneID)
	}
}

func TestParseConfig_Truncated(t *testing.T) {
	_, err := ParseConfig(make([]byte, configLockLen-1), nukiproto.DeviceKindSmartLock12)
	if err != ErrTruncatedPayload {
		t.Fatalf("err = %v, want ErrTruncatedPayload", err)
	}
	_, err = ParseConfig(make([]byte, configOpenerLen-1), nukiproto.DeviceKindOpener)
	if err != ErrTruncatedPayload {
		t.Fatalf("err = %v, want ErrTruncatedPayload", err)
	}
}
