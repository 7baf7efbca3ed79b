package bridge

import (
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// DeviceView is the read-only snapshot of a device the front-end renders:
// identity, last observed radio and protocol state, and battery flags
// decoded from the raw critical_battery_state byte.
type DeviceView struct {
	ID      uint32
	Address string
	Kind    nukiproto.DeviceKind
	RSSI    int

	HasState bool
	State    nukiproto.KeyturnerState

	HasConfig bool
	Config    nukiproto.Config

	BatteryCritical   bool
	BatteryCharging   bool
	BatteryPercentage int
}

func newDeviceView(d *device.Device) DeviceView {
	v := DeviceView{
		Address: d.Address,
		Kind:    d.Kind,
		RSSI:    d.RSSI(),
	}

	if cfg := d.ConfigSnapshot(); cfg != nil {
		v.HasConfig = true
		v.Config = *cfg
		v.ID = cfg.ID
	}

	if st := d.LastState(); st != nil {
		v.HasState = true
		v.State = *st
		v.BatteryCritical = st.IsBatteryCritical()
		v.BatteryCharging = st.IsBatteryCharging()
		v.BatteryPercentage = st.BatteryPercentage()
	}

	return v
}
