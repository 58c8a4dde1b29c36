package android

import (
	"fmt"
	"sync"

	"github.com/user/wifidirect-sim/kotlin"
	"github.com/user/wifidirect-sim/logger"
)

// P2pService is the slice of the platform WifiP2pManager this app drives.
// Every request is fire-and-forget; results come back on the listener.
type P2pService interface {
	Initialize(ctx *kotlin.Context) *kotlin.Channel
	DiscoverPeers(c *kotlin.Channel, listener kotlin.ActionListener)
	StopPeerDiscovery(c *kotlin.Channel, listener kotlin.ActionListener)
	RequestPeers(c *kotlin.Channel, listener kotlin.PeerListListener)
	Connect(c *kotlin.Channel, config *kotlin.WifiP2pConfig, listener kotlin.ActionListener)
	CancelConnect(c *kotlin.Channel, listener kotlin.ActionListener)
	RemoveGroup(c *kotlin.Channel, listener kotlin.ActionListener)
	RequestConnectionInfo(c *kotlin.Channel, listener kotlin.ConnectionInfoListener)
}

// WiFiDirectManager drives the platform P2P service and tracks connection
// and discovery state for the UI. All real P2P work happens in the platform;
// this type issues requests and folds the asynchronous answers back into a
// handful of flags.
type WiFiDirectManager struct {
	ctx      *kotlin.Context
	listener EventListener

	mu                 sync.Mutex
	service            P2pService
	channel            *kotlin.Channel
	receiver           *WiFiDirectBroadcastReceiver
	receiverRegistered bool

	isConnected        bool
	isDiscovering      bool
	autoConnectPending bool
	connectedDevice    *kotlin.WifiP2pDevice
	connectionInfo     *kotlin.WifiP2pInfo
	devices            []*kotlin.WifiP2pDevice

	// Request ids: a completion only counts when it belongs to the latest
	// issued request of its kind, so a late callback for a superseded
	// discovery cannot flip state.
	discoverReq uint64
	connectReq  uint64
}

// NewWiFiDirectManager creates a manager bound to the app context.
// Call Initialize before issuing requests.
func NewWiFiDirectManager(ctx *kotlin.Context, listener EventListener) *WiFiDirectManager {
	return &WiFiDirectManager{
		ctx:      ctx,
		listener: listener,
	}
}

// actionListenerFunc adapts two funcs to kotlin.ActionListener
type actionListenerFunc struct {
	success func()
	failure func(reason int)
}

func (l *actionListenerFunc) OnSuccess() {
	if l.success != nil {
		l.success()
	}
}

func (l *actionListenerFunc) OnFailure(reason int) {
	if l.failure != nil {
		l.failure(reason)
	}
}

// peerListListenerFunc adapts a func to kotlin.PeerListListener
type peerListListenerFunc func(peers *kotlin.WifiP2pDeviceList)

func (f peerListListenerFunc) OnPeersAvailable(peers *kotlin.WifiP2pDeviceList) {
	f(peers)
}

// connectionInfoListenerFunc adapts a func to kotlin.ConnectionInfoListener
type connectionInfoListenerFunc func(info *kotlin.WifiP2pInfo)

func (f connectionInfoListenerFunc) OnConnectionInfoAvailable(info *kotlin.WifiP2pInfo) {
	f(info)
}

// Initialize acquires the platform P2P service and registers for its
// broadcasts. A device without P2P support only gets a log line; nothing
// propagates to the caller.
func (m *WiFiDirectManager) Initialize() {
	svc := m.ctx.GetSystemService(kotlin.WifiP2pServiceName)
	if svc == nil {
		m.log("WiFi Direct is not supported on this device")
		return
	}
	service, ok := svc.(P2pService)
	if !ok {
		m.log("WiFi Direct service has unexpected type %T", svc)
		return
	}

	channel := service.Initialize(m.ctx)

	receiver := NewWiFiDirectBroadcastReceiver(m)
	filter := kotlin.NewIntentFilter(
		kotlin.WIFI_P2P_STATE_CHANGED_ACTION,
		kotlin.WIFI_P2P_PEERS_CHANGED_ACTION,
		kotlin.WIFI_P2P_CONNECTION_CHANGED_ACTION,
		kotlin.WIFI_P2P_THIS_DEVICE_CHANGED_ACTION,
	)
	m.ctx.RegisterReceiver(receiver, filter)

	m.mu.Lock()
	m.service = service
	m.channel = channel
	m.receiver = receiver
	m.receiverRegistered = true
	m.mu.Unlock()

	m.log("WiFi Direct initialized")
}

// DiscoverPeers asks the platform to start discovery. Acceptance only means
// scanning began; peers show up later through the peers-changed broadcast.
func (m *WiFiDirectManager) DiscoverPeers() {
	m.mu.Lock()
	service, channel := m.service, m.channel
	if service == nil {
		m.mu.Unlock()
		m.log("Ignoring discovery request: not initialized")
		return
	}
	m.discoverReq++
	req := m.discoverReq
	m.mu.Unlock()

	m.log("Starting peer discovery")
	service.DiscoverPeers(channel, &actionListenerFunc{
		success: func() {
			m.mu.Lock()
			if req != m.discoverReq {
				m.mu.Unlock()
				return // superseded by a newer discovery request
			}
			m.isDiscovering = true
			m.mu.Unlock()
			m.status("Discovery started")
		},
		failure: func(reason int) {
			m.mu.Lock()
			if req != m.discoverReq {
				m.mu.Unlock()
				return
			}
			m.isDiscovering = false
			m.mu.Unlock()
			m.status("Discovery failed: " + FailureReasonString(reason))
		},
	})
}

// StopDiscovery asks the platform to stop discovery
func (m *WiFiDirectManager) StopDiscovery() {
	m.mu.Lock()
	service, channel := m.service, m.channel
	if service == nil {
		m.mu.Unlock()
		return
	}
	m.discoverReq++
	req := m.discoverReq
	m.mu.Unlock()

	service.StopPeerDiscovery(channel, &actionListenerFunc{
		success: func() {
			m.mu.Lock()
			if req != m.discoverReq {
				m.mu.Unlock()
				return
			}
			m.isDiscovering = false
			m.mu.Unlock()
			m.status("Discovery stopped")
		},
		failure: func(reason int) {
			m.log("Failed to stop discovery: %s", FailureReasonString(reason))
		},
	})
}

// RequestPeers pulls the current peer snapshot and replaces the device list.
// When an auto-connect is pending and the snapshot is non-empty, the first
// AVAILABLE device (or the first device at all) gets a one-shot connect.
func (m *WiFiDirectManager) RequestPeers() {
	m.mu.Lock()
	service, channel := m.service, m.channel
	m.mu.Unlock()
	if service == nil {
		return
	}

	service.RequestPeers(channel, peerListListenerFunc(func(peers *kotlin.WifiP2pDeviceList) {
		devices := peers.GetDeviceList()

		m.mu.Lock()
		m.devices = devices
		var target *kotlin.WifiP2pDevice
		if m.autoConnectPending && len(devices) > 0 {
			target = devices[0]
			for _, d := range devices {
				if d.Status == kotlin.AVAILABLE {
					target = d
					break
				}
			}
			m.autoConnectPending = false
		}
		m.mu.Unlock()

		m.log("Peer list updated: %d device(s)", len(devices))
		if m.listener != nil {
			m.listener.OnDevicesChanged(devices)
		}

		if target != nil {
			m.log("Auto-connecting to %s", target.DeviceName)
			m.ConnectToDevice(target)
		}
	}))
}

// ConnectToDevice issues a connect request using push-button WPS. Acceptance
// records the device speculatively; the connection is only confirmed by a
// later connection-changed broadcast.
func (m *WiFiDirectManager) ConnectToDevice(device *kotlin.WifiP2pDevice) {
	if device == nil {
		return
	}

	m.mu.Lock()
	service, channel := m.service, m.channel
	if service == nil {
		m.mu.Unlock()
		m.log("Ignoring connect request: not initialized")
		return
	}
	m.connectReq++
	req := m.connectReq
	m.mu.Unlock()

	config := &kotlin.WifiP2pConfig{
		DeviceAddress: device.DeviceAddress,
		Wps:           kotlin.WpsInfo{Setup: kotlin.WPS_PBC},
	}

	service.Connect(channel, config, &actionListenerFunc{
		success: func() {
			m.mu.Lock()
			if req != m.connectReq {
				m.mu.Unlock()
				return
			}
			m.connectedDevice = device
			m.mu.Unlock()
			m.status("Connecting to " + device.DeviceName)
		},
		failure: func(reason int) {
			m.status("Connection to " + device.DeviceName + " failed: " + FailureReasonString(reason))
		},
	})
}

// AutoDiscoverAndConnect disconnects if needed, then starts discovery with a
// one-shot mark that makes the next non-empty peer update pick a device and
// connect to it.
func (m *WiFiDirectManager) AutoDiscoverAndConnect() {
	m.mu.Lock()
	connected := m.isConnected
	m.mu.Unlock()

	if connected {
		m.Disconnect()
	}

	m.mu.Lock()
	m.autoConnectPending = true
	m.mu.Unlock()

	m.DiscoverPeers()
}

// RequestConnectionInfo pulls group formation state and folds it into the
// connected flag
func (m *WiFiDirectManager) RequestConnectionInfo() {
	m.mu.Lock()
	service, channel := m.service, m.channel
	m.mu.Unlock()
	if service == nil {
		return
	}

	service.RequestConnectionInfo(channel, connectionInfoListenerFunc(func(info *kotlin.WifiP2pInfo) {
		if info != nil && info.GroupFormed {
			m.mu.Lock()
			m.isConnected = true
			m.connectionInfo = info
			m.mu.Unlock()

			role := "client"
			if info.IsGroupOwner {
				role = "group owner"
			}
			m.status(fmt.Sprintf("Connected as %s (GO at %s)", role, info.GroupOwnerAddress))
			if m.listener != nil {
				m.listener.OnConnectionChanged(true, info)
			}
		} else {
			m.mu.Lock()
			m.isConnected = false
			m.connectionInfo = nil
			m.connectedDevice = nil // no group means the speculative record is stale
			m.mu.Unlock()
			if m.listener != nil {
				m.listener.OnConnectionChanged(false, nil)
			}
		}
	}))
}

// OnDisconnected clears connection state after the platform reported the
// group gone. Repeated calls are no-ops, so duplicate broadcasts notify the
// UI exactly once per actual disconnection.
func (m *WiFiDirectManager) OnDisconnected() {
	m.mu.Lock()
	if !m.isConnected && m.connectedDevice == nil && m.connectionInfo == nil {
		m.mu.Unlock()
		return
	}
	m.isConnected = false
	m.connectedDevice = nil
	m.connectionInfo = nil
	m.mu.Unlock()

	m.status("Disconnected")
	if m.listener != nil {
		m.listener.OnConnectionChanged(false, nil)
	}
}

// Disconnect requests group removal. When that is rejected (typically no
// group formed yet), it falls back to canceling the in-flight connect; the
// fallback's own failure is only logged.
func (m *WiFiDirectManager) Disconnect() {
	m.mu.Lock()
	service, channel := m.service, m.channel
	m.mu.Unlock()
	if service == nil {
		return
	}

	service.RemoveGroup(channel, &actionListenerFunc{
		success: func() {
			m.OnDisconnected()
		},
		failure: func(reason int) {
			m.log("Group removal failed (%s), canceling connect instead", FailureReasonString(reason))
			service.CancelConnect(channel, &actionListenerFunc{
				success: func() {
					m.mu.Lock()
					m.connectedDevice = nil
					m.mu.Unlock()
					m.status("Connection attempt canceled")
				},
				failure: func(reason int) {
					m.log("Cancel connect failed: %s", FailureReasonString(reason))
				},
			})
		},
	})
}

// OnWifiP2pEnabled reacts to the platform turning P2P on or off. Disabling
// drops discovery and connection state, since the framework already did.
func (m *WiFiDirectManager) OnWifiP2pEnabled(enabled bool) {
	if enabled {
		m.status("WiFi P2P enabled")
		return
	}

	m.mu.Lock()
	m.isDiscovering = false
	m.autoConnectPending = false
	m.mu.Unlock()

	m.status("WiFi P2P disabled")
	m.OnDisconnected()
}

// Shutdown stops discovery, disconnects, and releases the platform handle.
// Each sub-step checks its own guard, so a second call does nothing.
func (m *WiFiDirectManager) Shutdown() {
	m.mu.Lock()
	discovering := m.isDiscovering
	connected := m.isConnected
	m.mu.Unlock()

	if discovering {
		m.StopDiscovery()
	}
	if connected {
		m.Disconnect()
	}

	m.mu.Lock()
	registered := m.receiverRegistered
	receiver := m.receiver
	hadService := m.service != nil
	m.receiverRegistered = false
	m.receiver = nil
	m.service = nil
	m.channel = nil
	m.autoConnectPending = false
	m.mu.Unlock()

	if registered {
		m.ctx.UnregisterReceiver(receiver)
	}
	if hadService {
		m.log("WiFi Direct shut down")
	}
}

// handleThisDeviceChanged forwards local device updates to the UI
func (m *WiFiDirectManager) handleThisDeviceChanged(device *kotlin.WifiP2pDevice) {
	if m.listener != nil {
		m.listener.OnThisDeviceChanged(device)
	}
}

// IsConnected reports whether the last fetched connection info had a formed group
func (m *WiFiDirectManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isConnected
}

// IsDiscovering reports whether the latest accepted discovery request left
// scanning on
func (m *WiFiDirectManager) IsDiscovering() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDiscovering
}

// ConnectedDevice returns the device recorded at connect-request time, if any
func (m *WiFiDirectManager) ConnectedDevice() *kotlin.WifiP2pDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectedDevice
}

// ConnectionInfo returns the last fetched group info, if any
func (m *WiFiDirectManager) ConnectionInfo() *kotlin.WifiP2pInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectionInfo
}

// Devices returns the most recent peer snapshot
func (m *WiFiDirectManager) Devices() []*kotlin.WifiP2pDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices
}

// FailureReasonString translates a platform failure reason into a
// human-readable string. Unrecognized codes get a generic rendering.
func FailureReasonString(reason int) string {
	switch reason {
	case kotlin.ERROR:
		return "internal error"
	case kotlin.P2P_UNSUPPORTED:
		return "P2P unsupported"
	case kotlin.BUSY:
		return "framework busy"
	case kotlin.NO_SERVICE_REQUESTS:
		return "no service requests"
	default:
		return fmt.Sprintf("unknown error (%d)", reason)
	}
}

func (m *WiFiDirectManager) log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Info("WiFiDirect", "%s", msg)
	if m.listener != nil {
		m.listener.OnLog(msg)
	}
}

func (m *WiFiDirectManager) status(msg string) {
	logger.Info("WiFiDirect", "%s", msg)
	if m.listener != nil {
		m.listener.OnLog(msg)
		m.listener.OnStatusChanged(msg)
	}
}
