package manager

import "errors"

var (
	// ErrDeviceNotFound is returned when a lookup by id or address fails.
	ErrDeviceNotFound = errors.New("manager: device not found")

	// ErrDuplicateAddress is returned by AddDevice when a device is already
	// registered at that address.
	ErrDuplicateAddress = errors.New("manager: device already registered at this address")
)
