package android

import "github.com/user/wifidirect-sim/kotlin"

// EventListener is the notification surface the manager exposes to the UI.
// Every method is invoked on the looper thread, one event at a time.
type EventListener interface {
	// OnLog carries free-form progress lines
	OnLog(message string)

	// OnDevicesChanged delivers the latest peer snapshot, wholesale
	OnDevicesChanged(devices []*kotlin.WifiP2pDevice)

	// OnConnectionChanged reports group formation. info is nil when
	// connected is false.
	OnConnectionChanged(connected bool, info *kotlin.WifiP2pInfo)

	// OnStatusChanged carries short user-facing status lines
	OnStatusChanged(status string)

	// OnThisDeviceChanged reports changes to the local device record
	OnThisDeviceChanged(device *kotlin.WifiP2pDevice)
}
