package android

import (
	"github.com/user/wifidirect-sim/kotlin"
	"github.com/user/wifidirect-sim/logger"
)

// WiFiDirectBroadcastReceiver routes the four WiFi Direct system broadcasts
// into manager calls. It holds no state of its own: each broadcast kind maps
// to exactly one manager method, so duplicate or out-of-order delivery is
// harmless.
type WiFiDirectBroadcastReceiver struct {
	manager *WiFiDirectManager
}

// NewWiFiDirectBroadcastReceiver creates a receiver feeding the manager
func NewWiFiDirectBroadcastReceiver(manager *WiFiDirectManager) *WiFiDirectBroadcastReceiver {
	return &WiFiDirectBroadcastReceiver{manager: manager}
}

// OnReceive demultiplexes one broadcast intent
func (r *WiFiDirectBroadcastReceiver) OnReceive(ctx *kotlin.Context, intent *kotlin.Intent) {
	switch intent.Action {
	case kotlin.WIFI_P2P_STATE_CHANGED_ACTION:
		state := intent.IntExtra(kotlin.EXTRA_WIFI_STATE, kotlin.WIFI_P2P_STATE_DISABLED)
		r.manager.OnWifiP2pEnabled(state == kotlin.WIFI_P2P_STATE_ENABLED)

	case kotlin.WIFI_P2P_PEERS_CHANGED_ACTION:
		r.manager.RequestPeers()

	case kotlin.WIFI_P2P_CONNECTION_CHANGED_ACTION:
		networkInfo, _ := intent.Extra(kotlin.EXTRA_NETWORK_INFO).(*kotlin.NetworkInfo)
		if networkInfo.IsConnected() {
			r.manager.RequestConnectionInfo()
		} else {
			r.manager.OnDisconnected()
		}

	case kotlin.WIFI_P2P_THIS_DEVICE_CHANGED_ACTION:
		device, _ := intent.Extra(kotlin.EXTRA_WIFI_P2P_DEVICE).(*kotlin.WifiP2pDevice)
		r.manager.handleThisDeviceChanged(device)

	default:
		logger.Trace("WiFiDirect", "Ignoring broadcast %q", intent.Action)
	}
}
