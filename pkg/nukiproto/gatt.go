package nukiproto

// GATT UUIDs for the Nuki Smart Lock and Opener BLE services. The pairing
// characteristic carries unencrypted pairing-channel frames; the service
// characteristic carries encrypted service-channel frames once paired.
const (
	SmartLockPairingService   = "a92ee100-5501-11e4-916c-0800200c9a66"
	SmartLockServiceChar      = "a92ee202-5501-11e4-916c-0800200c9a66"
	SmartLockPairingChar      = "a92ee101-5501-11e4-916c-0800200c9a66"

	OpenerPairingService = "a92ae100-5501-11e4-916c-0800200c9a66"
	OpenerServiceChar    = "a92ae202-5501-11e4-916c-0800200c9a66"
	OpenerPairingChar    = "a92ae101-5501-11e4-916c-0800200c9a66"
)

// CharacteristicsFor returns the pairing and service characteristic UUIDs
// for the given device kind. Openers and smart locks/doors share a layout
// but advertise it under different service/characteristic UUIDs.
func CharacteristicsFor(kind DeviceKind) (pairingChar, serviceChar string) {
	if kind == DeviceKindOpener {
		return OpenerPairingChar, OpenerServiceChar
	}
	return SmartLockPairingChar, SmartLockServiceChar
}
