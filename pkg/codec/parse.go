package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nukibridge/core/pkg/nukiproto"
)

// keyturnerStatesLen is the fixed length of a KEYTURNER_STATES payload,
// common to locks and openers (only the interpretation of lock_state and
// the timer field differs between device kinds).
const keyturnerStatesLen = 21

// ParseKeyturnerState decodes a KEYTURNER_STATES payload.
func ParseKeyturnerState(payload []byte) (nukiproto.KeyturnerState, error) {
	if len(payload) < keyturnerStatesLen {
		return nukiproto.KeyturnerState{}, ErrTruncatedPayload
	}

	t, err := parseDateTime(payload[3:10])
	if err != nil {
		return nukiproto.KeyturnerState{}, err
	}

	return nukiproto.KeyturnerState{
		NukiState:                      nukiproto.NukiState(payload[0]),
		LockPosition:                   payload[1],
		Trigger:                        payload[2],
		CurrentTime:                    t,
		TimezoneOffset:                 int16(binary.LittleEndian.Uint16(payload[10:12])),
		CriticalBatteryState:           payload[12],
		CurrentUpdateCount:             payload[13],
		Timer:                          uint16(payload[14]),
		LastLockAction:                 nukiproto.Action(payload[15]),
		LastLockActionTrigger:          payload[16],
		LastLockActionCompletionStatus: payload[17],
		DoorSensorState:                nukiproto.DoorSensorState(payload[18]),
		NightmodeActive:                binary.LittleEndian.Uint16(payload[19:21]),
	}, nil
}

// configLockLen is the fixed length of a lock CONFIG payload: it carries
// led_brightness, single_lock, and homekit_status, which the opener layout
// omits.
const configLockLen = 74

// configOpenerLen is the fixed length of an opener CONFIG payload: two
// bytes shorter than the lock's, missing led_brightness and homekit_status;
// the kind byte is read as operating_mode instead of single_lock.
const configOpenerLen = 72

// ParseConfig decodes a CONFIG payload. The lock and opener layouts
// diverge after led_enabled, so kind selects which of the two fixed
// layouts to read.
func ParseConfig(payload []byte, kind nukiproto.DeviceKind) (nukiproto.Config, error) {
	if kind == nukiproto.DeviceKindOpener {
		return parseOpenerConfig(payload)
	}
	return parseLockConfig(payload)
}

func parseLockConfig(payload []byte) (nukiproto.Config, error) {
	if len(payload) < configLockLen {
		return nukiproto.Config{}, ErrTruncatedPayload
	}

	off := 0
	id := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4

	name := strings.TrimRight(string(payload[off:off+32]), "\x00")
	off += 32

	lat := math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4
	lon := math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4

	autoUnlatch := payload[off] != 0
	off++
	pairingEnabled := payload[off] != 0
	off++
	buttonEnabled := payload[off] != 0
	off++
	ledEnabled := payload[off] != 0
	off++
	ledBrightness := payload[off]
	off++

	t, err := parseDateTime(payload[off : off+7])
	if err != nil {
		return nukiproto.Config{}, err
	}
	off += 7

	tzOffset := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
	off += 2
	dstMode := payload[off]
	off++
	hasFob := payload[off] != 0
	off++
	fob1 := payload[off]
	off++
	fob2 := payload[off]
	off++
	fob3 := payload[off]
	off++

	singleLock := payload[off] != 0
	off++

	advertisingMode := payload[off]
	off++
	hasKeypad := payload[off] != 0
	off++
	firmware := fmt.Sprintf("%d.%d.%d", payload[off], payload[off+1], payload[off+2])
	off += 3
	hardware := fmt.Sprintf("%d.%d", payload[off], payload[off+1])
	off += 2
	homekitStatus := payload[off]
	off++
	timezoneID := binary.LittleEndian.Uint16(payload[off : off+2])

	return nukiproto.Config{
		ID:               id,
		Name:             name,
		Latitude:         lat,
		Longitude:        lon,
		AutoUnlatch:      autoUnlatch,
		PairingEnabled:   pairingEnabled,
		ButtonEnabled:    buttonEnabled,
		LedEnabled:       ledEnabled,
		LedBrightness:    ledBrightness,
		CurrentTime:      t,
		TimezoneOffset:   tzOffset,
		DSTMode:          dstMode,
		HasFob:           hasFob,
		FobAction1:       fob1,
		FobAction2:       fob2,
		FobAction3:       fob3,
		SingleLock:       singleLock,
		AdvertisingMode:  advertisingMode,
		HasKeypad:        hasKeypad,
		FirmwareVersion:  firmware,
		HardwareRevision: hardware,
		HomekitStatus:    homekitStatus,
		TimezoneID:       timezoneID,
	}, nil
}

func parseOpenerConfig(payload []byte) (nukiproto.Config, error) {
	if len(payload) < configOpenerLen {
		return nukiproto.Config{}, ErrTruncatedPayload
	}

	off := 0
	id := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4

	name := strings.TrimRight(string(payload[off:off+32]), "\x00")
	off += 32

	lat := math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4
	lon := math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4

	autoUnlatch := payload[off] != 0
	off++
	pairingEnabled := payload[off] != 0
	off++
	buttonEnabled := payload[off] != 0
	off++
	ledEnabled := payload[off] != 0
	off++
	// no led_brightness: the opener has no dimmable LED.

	t, err := parseDateTime(payload[off : off+7])
	if err != nil {
		return nukiproto.Config{}, err
	}
	off += 7

	tzOffset := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
	off += 2
	dstMode := payload[off]
	off++
	hasFob := payload[off] != 0
	off++
	fob1 := payload[off]
	off++
	fob2 := payload[off]
	off++
	fob3 := payload[off]
	off++

	operatingMode := payload[off]
	off++

	advertisingMode := payload[off]
	off++
	hasKeypad := payload[off] != 0
	off++
	firmware := fmt.Sprintf("%d.%d.%d", payload[off], payload[off+1], payload[off+2])
	off += 3
	hardware := fmt.Sprintf("%d.%d", payload[off], payload[off+1])
	off += 2
	// no homekit_status: HomeKit pairing is lock-only.
	timezoneID := binary.LittleEndian.Uint16(payload[off : off+2])

	return nukiproto.Config{
		ID:               id,
		Name:             name,
		Latitude:         lat,
		Longitude:        lon,
		AutoUnlatch:      autoUnlatch,
		PairingEnabled:   pairingEnabled,
		ButtonEnabled:    buttonEnabled,
		LedEnabled:       ledEnabled,
		CurrentTime:      t,
		TimezoneOffset:   tzOffset,
		DSTMode:          dstMode,
		HasFob:           hasFob,
		FobAction1:       fob1,
		FobAction2:       fob2,
		FobAction3:       fob3,
		OperatingMode:    operatingMode,
		AdvertisingMode:  advertisingMode,
		HasKeypad:        hasKeypad,
		FirmwareVersion:  firmware,
		HardwareRevision: hardware,
		TimezoneID:       timezoneID,
	}, nil
}

// ParseAuthID decodes an AUTH_ID reply payload.
func ParseAuthID(payload []byte) (nukiproto.AuthIDPayload, error) {
	if len(payload) < 32+4+16+32 {
		return nukiproto.AuthIDPayload{}, ErrTruncatedPayload
	}
	var p nukiproto.AuthIDPayload
	copy(p.Authenticator[:], payload[0:32])
	copy(p.AuthID[:], payload[32:36])
	copy(p.UUID[:], payload[36:52])
	copy(p.Nonce[:], payload[52:84])
	return p, nil
}

// ParseStatus decodes a STATUS reply payload.
func ParseStatus(payload []byte) (nukiproto.StatusCode, error) {
	if len(payload) < 1 {
		return 0, ErrTruncatedPayload
	}
	return nukiproto.StatusCode(payload[0]), nil
}

// ParseErrorReport decodes an ERROR_REPORT reply payload.
func ParseErrorReport(payload []byte) (nukiproto.ErrorReportPayload, error) {
	if len(payload) < 3 {
		return nukiproto.ErrorReportPayload{}, ErrTruncatedPayload
	}
	return nukiproto.ErrorReportPayload{
		Code:         nukiproto.ErrorCode(int8(payload[0])),
		OffendingCmd: nukiproto.Command(binary.LittleEndian.Uint16(payload[1:3])),
	}, nil
}

// ParsePublicKey decodes a PUBLIC_KEY payload (the raw 32-byte X25519 key).
func ParsePublicKey(payload []byte) ([32]byte, error) {
	var k [32]byte
	if len(payload) < 32 {
		return k, ErrTruncatedPayload
	}
	copy(k[:], payload[:32])
	return k, nil
}

// ParseChallenge decodes a CHALLENGE payload (a 32-byte nonce).
func ParseChallenge(payload []byte) ([32]byte, error) {
	var n [32]byte
	if len(payload) < 32 {
		return n, ErrTruncatedPayload
	}
	copy(n[:], payload[:32])
	return n, nil
}

// parseDateTime decodes the 7-byte date-time field shared by
// KEYTURNER_STATES and CONFIG: year (2 LE), month, day, hour, minute,
// second.
func parseDateTime(b []byte) (time.Time, error) {
	if len(b) < 7 {
		return time.Time{}, ErrTruncatedPayload
	}
	year := int(binary.LittleEndian.Uint16(b[0:2]))
	return time.Date(year, time.Month(b[2]), int(b[3]), int(b[4]), int(b[5]), int(b[6]), 0, time.UTC), nil
}
