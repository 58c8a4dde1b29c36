package kotlin

import "fmt"

// WifiP2pDevice status values, matching Android's WifiP2pDevice constants
const (
	CONNECTED   = 0
	INVITED     = 1
	FAILED      = 2
	AVAILABLE   = 3
	UNAVAILABLE = 4
)

// WifiP2pDevice matches Android's WifiP2pDevice class
type WifiP2pDevice struct {
	DeviceName        string
	DeviceAddress     string // P2P interface MAC
	PrimaryDeviceType string
	Status            int
}

// StatusString renders a device status constant for logs and UI
func (d *WifiP2pDevice) StatusString() string {
	switch d.Status {
	case CONNECTED:
		return "CONNECTED"
	case INVITED:
		return "INVITED"
	case FAILED:
		return "FAILED"
	case AVAILABLE:
		return "AVAILABLE"
	case UNAVAILABLE:
		return "UNAVAILABLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", d.Status)
	}
}

func (d *WifiP2pDevice) String() string {
	return fmt.Sprintf("%s [%s] %s", d.DeviceName, d.DeviceAddress, d.StatusString())
}

// WifiP2pDeviceList matches Android's WifiP2pDeviceList: the peer snapshot
// delivered to a PeerListListener
type WifiP2pDeviceList struct {
	devices []*WifiP2pDevice
}

// NewWifiP2pDeviceList wraps a snapshot of devices
func NewWifiP2pDeviceList(devices []*WifiP2pDevice) *WifiP2pDeviceList {
	return &WifiP2pDeviceList{devices: devices}
}

// GetDeviceList returns the devices in snapshot order
func (l *WifiP2pDeviceList) GetDeviceList() []*WifiP2pDevice {
	return l.devices
}

// WpsInfo setup methods, matching Android's WpsInfo constants
const (
	WPS_PBC     = 0
	WPS_DISPLAY = 1
	WPS_KEYPAD  = 2
)

// WpsInfo matches Android's WpsInfo class
type WpsInfo struct {
	Setup int
}

// WifiP2pConfig matches Android's WifiP2pConfig class
type WifiP2pConfig struct {
	DeviceAddress    string
	Wps              WpsInfo
	GroupOwnerIntent int
}

// WifiP2pInfo matches Android's WifiP2pInfo class: group formation state
// delivered to a ConnectionInfoListener
type WifiP2pInfo struct {
	GroupFormed       bool
	IsGroupOwner      bool
	GroupOwnerAddress string
}

// NetworkInfo is the slice of Android's NetworkInfo carried by the
// connection-changed broadcast
type NetworkInfo struct {
	Connected bool
}

// IsConnected matches the Android accessor
func (n *NetworkInfo) IsConnected() bool {
	return n != nil && n.Connected
}
