package nukiproto

import "time"

// Config is the decoded payload of a CONFIG reply. Lock and opener CONFIG
// layouts diverge (the opener omits LedBrightness/SingleLock/HomekitStatus
// and adds OperatingMode); fields that don't apply to the owning device's
// Kind are left at their zero value.
type Config struct {
	ID               uint32
	Name             string
	Latitude         float32
	Longitude        float32
	AutoUnlatch      bool
	PairingEnabled   bool
	ButtonEnabled    bool
	LedEnabled       bool
	LedBrightness    uint8 // lock only
	CurrentTime      time.Time
	TimezoneOffset   int16
	DSTMode          uint8
	HasFob           bool
	FobAction1       uint8
	FobAction2       uint8
	FobAction3       uint8
	SingleLock       bool  // lock only
	OperatingMode    uint8 // opener only
	AdvertisingMode  uint8
	HasKeypad        bool
	FirmwareVersion  string
	HardwareRevision string
	HomekitStatus    uint8 // lock only
	TimezoneID       uint16
}
