package nukiproto

import "time"

// KeyturnerState is the decoded payload of a KEYTURNER_STATES reply. The
// same layout is shared by locks and openers; callers select LockState() or
// OpenerState() based on the owning device's Kind (see §3/§4.1 of the
// protocol description: the two device families differ only in how the
// lock-position byte and the timer field are interpreted).
type KeyturnerState struct {
	NukiState                      NukiState
	LockPosition                   uint8 // interpret via LockState() or OpenerState()
	Trigger                        uint8
	CurrentTime                    time.Time
	TimezoneOffset                 int16
	CriticalBatteryState           uint8
	CurrentUpdateCount             uint8
	Timer                          uint16 // lock_n_go_timer (lock) or ring_to_open_timer (opener)
	LastLockAction                 Action
	LastLockActionTrigger          uint8
	LastLockActionCompletionStatus uint8
	DoorSensorState                DoorSensorState
	NightmodeActive                uint16
}

// LockState interprets the raw lock-position byte using the smartlock enum.
func (s KeyturnerState) LockState() LockState {
	return LockState(s.LockPosition)
}

// OpenerState interprets the raw lock-position byte using the
// opener-specific enum.
func (s KeyturnerState) OpenerState() OpenerState {
	return OpenerState(s.LockPosition)
}

// IsBatteryCritical decodes bit 0 of critical_battery_state.
func (s KeyturnerState) IsBatteryCritical() bool {
	return s.CriticalBatteryState&0b1 != 0
}

// IsBatteryCharging decodes bit 1 of critical_battery_state.
func (s KeyturnerState) IsBatteryCharging() bool {
	return s.CriticalBatteryState&0b10 != 0
}

// BatteryPercentage decodes bits 2-7 of critical_battery_state; the stored
// value is half the real percentage.
func (s KeyturnerState) BatteryPercentage() int {
	return int((s.CriticalBatteryState&0b11111100)>>2) * 2
}
