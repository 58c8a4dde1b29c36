package kotlin

import (
	"sync"

	"github.com/user/wifidirect-sim/logger"
	"github.com/user/wifidirect-sim/wire"
)

// WifiP2pServiceName is the system service key for WiFi Direct
// (Android: Context.WIFI_P2P_SERVICE)
const WifiP2pServiceName = "wifip2p"

// Broadcast actions, matching Android's WifiP2pManager constants
const (
	WIFI_P2P_STATE_CHANGED_ACTION       = "android.net.wifi.p2p.STATE_CHANGED"
	WIFI_P2P_PEERS_CHANGED_ACTION       = "android.net.wifi.p2p.PEERS_CHANGED"
	WIFI_P2P_CONNECTION_CHANGED_ACTION  = "android.net.wifi.p2p.CONNECTION_STATE_CHANGE"
	WIFI_P2P_THIS_DEVICE_CHANGED_ACTION = "android.net.wifi.p2p.THIS_DEVICE_CHANGED"
)

// Broadcast extras
const (
	EXTRA_WIFI_STATE      = "wifi_p2p_state"
	EXTRA_NETWORK_INFO    = "networkInfo"
	EXTRA_WIFI_P2P_INFO   = "wifiP2pInfo"
	EXTRA_WIFI_P2P_DEVICE = "wifiP2pDevice"
)

// P2P framework states carried by EXTRA_WIFI_STATE
const (
	WIFI_P2P_STATE_DISABLED = 1
	WIFI_P2P_STATE_ENABLED  = 2
)

// ActionListener failure reasons, matching Android's WifiP2pManager constants
const (
	ERROR               = 0
	P2P_UNSUPPORTED     = 1
	BUSY                = 2
	NO_SERVICE_REQUESTS = 3
)

// ActionListener matches Android's WifiP2pManager.ActionListener interface
type ActionListener interface {
	OnSuccess()
	OnFailure(reason int)
}

// PeerListListener matches Android's WifiP2pManager.PeerListListener interface
type PeerListListener interface {
	OnPeersAvailable(peers *WifiP2pDeviceList)
}

// ConnectionInfoListener matches Android's WifiP2pManager.ConnectionInfoListener interface
type ConnectionInfoListener interface {
	OnConnectionInfoAvailable(info *WifiP2pInfo)
}

// WifiP2pManager matches Android's WifiP2pManager system service: every
// request is fire-and-forget with its result delivered on the looper, and
// state changes arrive as broadcasts
type WifiP2pManager struct {
	wire *wire.Wire
}

// NewWifiP2pManager creates the service over a device radio
func NewWifiP2pManager(w *wire.Wire) *WifiP2pManager {
	return &WifiP2pManager{wire: w}
}

// Channel binds one application to the P2P framework
// (Android: WifiP2pManager.Channel)
type Channel struct {
	ctx  *Context
	wire *wire.Wire
	mgr  *WifiP2pManager

	mu         sync.Mutex
	p2pEnabled bool
	peers      []*WifiP2pDevice
	peerByMAC  map[string]*WifiP2pDevice
	macToUUID  map[string]string
	invited    map[string]bool // MAC -> pending connect request
	failed     map[string]bool // MAC -> last connect attempt failed
	info       *WifiP2pInfo
	scanStop   chan struct{}
	thisDevice *WifiP2pDevice
}

// Initialize binds the application context to the P2P framework and returns
// the channel all further requests go through
// Matches: manager.initialize(context, looper, listener)
func (m *WifiP2pManager) Initialize(ctx *Context) *Channel {
	c := &Channel{
		ctx:        ctx,
		wire:       m.wire,
		mgr:        m,
		p2pEnabled: true,
		peerByMAC:  make(map[string]*WifiP2pDevice),
		macToUUID:  make(map[string]string),
		invited:    make(map[string]bool),
		failed:     make(map[string]bool),
		thisDevice: &WifiP2pDevice{
			DeviceName:        m.wire.DeviceName(),
			DeviceAddress:     m.wire.MACAddress(),
			PrimaryDeviceType: wire.PrimaryDeviceTypePhone,
			Status:            AVAILABLE,
		},
	}

	m.wire.SetGroupFormedCallback(c.onGroupFormed)
	m.wire.SetGroupRemovedCallback(c.onGroupRemoved)
	m.wire.SetMembersChangedCallback(c.onMembersChanged)

	return c
}

func (m *WifiP2pManager) logPrefix() string {
	uuid := m.wire.HardwareUUID()
	if len(uuid) > 8 {
		uuid = uuid[:8]
	}
	return uuid + " WifiP2p"
}

func (m *WifiP2pManager) postSuccess(c *Channel, listener ActionListener) {
	if listener == nil {
		return
	}
	c.ctx.looper.Post(listener.OnSuccess)
}

func (m *WifiP2pManager) postFailure(c *Channel, listener ActionListener, reason int) {
	if listener == nil {
		return
	}
	c.ctx.looper.Post(func() { listener.OnFailure(reason) })
}

// DiscoverPeers starts peer discovery. Success means the request was
// accepted; peers arrive later via WIFI_P2P_PEERS_CHANGED_ACTION.
func (m *WifiP2pManager) DiscoverPeers(c *Channel, listener ActionListener) {
	if c == nil {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	c.mu.Lock()
	enabled := c.p2pEnabled
	c.mu.Unlock()
	if !enabled {
		m.postFailure(c, listener, BUSY)
		return
	}
	if m.wire.Simulator().ShouldFailDiscovery() {
		logger.Debug(m.logPrefix(), "Discovery request rejected (simulated framework busy)")
		m.postFailure(c, listener, BUSY)
		return
	}

	c.mu.Lock()
	if c.scanStop == nil {
		c.scanStop = m.wire.StartScan(c.onScanResults)
	}
	c.mu.Unlock()

	logger.Info(m.logPrefix(), "🔍 Peer discovery started")
	m.postSuccess(c, listener)
}

// StopPeerDiscovery stops an ongoing peer discovery
func (m *WifiP2pManager) StopPeerDiscovery(c *Channel, listener ActionListener) {
	if c == nil {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	c.mu.Lock()
	stop := c.scanStop
	c.scanStop = nil
	c.mu.Unlock()

	if stop != nil {
		m.wire.StopScan(stop)
		logger.Info(m.logPrefix(), "🛑 Peer discovery stopped")
	}
	m.postSuccess(c, listener)
}

// RequestPeers delivers the current peer snapshot to the listener
func (m *WifiP2pManager) RequestPeers(c *Channel, listener PeerListListener) {
	if c == nil || listener == nil {
		return
	}

	c.mu.Lock()
	snapshot := make([]*WifiP2pDevice, len(c.peers))
	copy(snapshot, c.peers)
	c.mu.Unlock()

	c.ctx.looper.Post(func() {
		listener.OnPeersAvailable(NewWifiP2pDeviceList(snapshot))
	})
}

// Connect starts a connection to the device named in config. Success means
// the request was accepted; the connection itself is confirmed later by a
// WIFI_P2P_CONNECTION_CHANGED_ACTION broadcast.
func (m *WifiP2pManager) Connect(c *Channel, config *WifiP2pConfig, listener ActionListener) {
	if c == nil || config == nil {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	c.mu.Lock()
	enabled := c.p2pEnabled
	peerUUID, known := c.macToUUID[config.DeviceAddress]
	c.mu.Unlock()

	if !enabled {
		m.postFailure(c, listener, BUSY)
		return
	}
	if !known {
		logger.Warn(m.logPrefix(), "Connect to unknown address %s", config.DeviceAddress)
		m.postFailure(c, listener, ERROR)
		return
	}

	wpsMethod := wire.WpsMethodPBC
	switch config.Wps.Setup {
	case WPS_DISPLAY:
		wpsMethod = wire.WpsMethodDisplay
	case WPS_KEYPAD:
		wpsMethod = wire.WpsMethodKeypad
	}

	if config.GroupOwnerIntent > 0 {
		m.wire.SetGroupOwnerIntent(config.GroupOwnerIntent)
	}

	c.mu.Lock()
	c.invited[config.DeviceAddress] = true
	delete(c.failed, config.DeviceAddress)
	c.refreshStatusesLocked()
	c.mu.Unlock()
	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))

	logger.Info(m.logPrefix(), "🔌 Connecting to %s (WPS %s)", config.DeviceAddress, wpsMethod)
	m.postSuccess(c, listener)

	go func() {
		if err := m.wire.Connect(peerUUID, wpsMethod); err != nil {
			logger.Warn(m.logPrefix(), "Connect failed: %v", err)
			c.mu.Lock()
			delete(c.invited, config.DeviceAddress)
			c.failed[config.DeviceAddress] = true
			c.refreshStatusesLocked()
			c.mu.Unlock()
			c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
		}
		// Success is reported by the group-formed callback
	}()
}

// CancelConnect aborts an in-flight connect request
func (m *WifiP2pManager) CancelConnect(c *Channel, listener ActionListener) {
	if c == nil {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	if err := m.wire.CancelConnect(); err != nil {
		m.postFailure(c, listener, ERROR)
		return
	}

	c.mu.Lock()
	c.invited = make(map[string]bool)
	c.refreshStatusesLocked()
	c.mu.Unlock()
	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))

	logger.Info(m.logPrefix(), "🚫 Connect canceled")
	m.postSuccess(c, listener)
}

// RemoveGroup leaves or dissolves the current group. Fails with ERROR when
// no group is formed.
func (m *WifiP2pManager) RemoveGroup(c *Channel, listener ActionListener) {
	if c == nil {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	if err := m.wire.RemoveGroup(); err != nil {
		logger.Debug(m.logPrefix(), "RemoveGroup failed: %v", err)
		m.postFailure(c, listener, ERROR)
		return
	}
	m.postSuccess(c, listener)
}

// RequestConnectionInfo delivers the current group formation state
func (m *WifiP2pManager) RequestConnectionInfo(c *Channel, listener ConnectionInfoListener) {
	if c == nil || listener == nil {
		return
	}

	c.mu.Lock()
	info := &WifiP2pInfo{}
	if c.info != nil {
		copied := *c.info
		info = &copied
	}
	c.mu.Unlock()

	c.ctx.looper.Post(func() {
		listener.OnConnectionInfoAvailable(info)
	})
}

// SetDeviceName renames the local device and broadcasts the change
func (m *WifiP2pManager) SetDeviceName(c *Channel, name string, listener ActionListener) {
	if c == nil || name == "" {
		if listener != nil {
			listener.OnFailure(ERROR)
		}
		return
	}

	if err := m.wire.SetDeviceName(name); err != nil {
		m.postFailure(c, listener, ERROR)
		return
	}

	c.mu.Lock()
	c.thisDevice.DeviceName = name
	device := *c.thisDevice
	c.mu.Unlock()

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_THIS_DEVICE_CHANGED_ACTION).
		PutExtra(EXTRA_WIFI_P2P_DEVICE, &device))
	m.postSuccess(c, listener)
}

// ThisDevice returns a copy of the local device record
func (c *Channel) ThisDevice() *WifiP2pDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	device := *c.thisDevice
	return &device
}

// SetP2pEnabled toggles the simulated P2P framework on or off, with the
// state-changed broadcast real Android delivers
func (c *Channel) SetP2pEnabled(enabled bool) {
	c.mu.Lock()
	c.p2pEnabled = enabled
	state := WIFI_P2P_STATE_ENABLED
	var stop chan struct{}
	if !enabled {
		state = WIFI_P2P_STATE_DISABLED
		stop = c.scanStop
		c.scanStop = nil
		c.peers = nil
		c.peerByMAC = make(map[string]*WifiP2pDevice)
		c.invited = make(map[string]bool)
		c.failed = make(map[string]bool)
	}
	c.mu.Unlock()

	if !enabled {
		if stop != nil {
			c.wire.StopScan(stop)
		}
		c.wire.RemoveGroup() // best effort, no group is fine
	}

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_STATE_CHANGED_ACTION).
		PutExtra(EXTRA_WIFI_STATE, state))
	if !enabled {
		c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
	}
}

// onScanResults rebuilds the peer snapshot from a beacon scan.
// Connected peers stay listed even when their beacon is gone.
func (c *Channel) onScanResults(beacons []wire.Beacon) {
	connected := make(map[string]bool)
	for _, uuid := range c.wire.ConnectedPeers() {
		connected[uuid] = true
	}

	c.mu.Lock()
	seen := make(map[string]bool)
	devices := make([]*WifiP2pDevice, 0, len(beacons))
	for _, b := range beacons {
		seen[b.MACAddress] = true
		c.macToUUID[b.MACAddress] = b.HardwareUUID

		status := AVAILABLE
		switch {
		case connected[b.HardwareUUID]:
			status = CONNECTED
		case c.invited[b.MACAddress]:
			status = INVITED
		case c.failed[b.MACAddress]:
			status = FAILED
		}
		devices = append(devices, &WifiP2pDevice{
			DeviceName:        b.DeviceName,
			DeviceAddress:     b.MACAddress,
			PrimaryDeviceType: b.PrimaryDeviceType,
			Status:            status,
		})
	}
	for mac, prev := range c.peerByMAC {
		if !seen[mac] && connected[c.macToUUID[mac]] {
			kept := *prev
			kept.Status = CONNECTED
			devices = append(devices, &kept)
		}
	}

	c.peers = devices
	c.peerByMAC = make(map[string]*WifiP2pDevice, len(devices))
	for _, d := range devices {
		c.peerByMAC[d.DeviceAddress] = d
	}
	c.mu.Unlock()

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
}

// refreshStatusesLocked recomputes peer statuses from the wire's link state
// and the invited/failed marks. Caller holds c.mu.
func (c *Channel) refreshStatusesLocked() {
	connected := make(map[string]bool)
	for _, uuid := range c.wire.ConnectedPeers() {
		connected[uuid] = true
	}
	for _, d := range c.peers {
		uuid := c.macToUUID[d.DeviceAddress]
		switch {
		case connected[uuid]:
			delete(c.invited, d.DeviceAddress)
			d.Status = CONNECTED
		case c.invited[d.DeviceAddress]:
			d.Status = INVITED
		case c.failed[d.DeviceAddress]:
			d.Status = FAILED
		default:
			d.Status = AVAILABLE
		}
	}
}

// onGroupFormed is the wire's group-formation callback
func (c *Channel) onGroupFormed(info wire.GroupInfo) {
	c.mu.Lock()
	c.info = &WifiP2pInfo{
		GroupFormed:       info.GroupFormed,
		IsGroupOwner:      info.IsGroupOwner,
		GroupOwnerAddress: info.GroupOwnerAddress,
	}
	c.refreshStatusesLocked()
	networkInfo := &NetworkInfo{Connected: true}
	c.mu.Unlock()

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_CONNECTION_CHANGED_ACTION).
		PutExtra(EXTRA_NETWORK_INFO, networkInfo))
	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
}

// onGroupRemoved is the wire's group-teardown callback
func (c *Channel) onGroupRemoved() {
	c.mu.Lock()
	c.info = nil
	c.refreshStatusesLocked()
	c.mu.Unlock()

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_CONNECTION_CHANGED_ACTION).
		PutExtra(EXTRA_NETWORK_INFO, &NetworkInfo{Connected: false}))
	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
}

// onMembersChanged is the owner-side membership callback
func (c *Channel) onMembersChanged(memberUUIDs []string) {
	c.mu.Lock()
	c.refreshStatusesLocked()
	c.mu.Unlock()

	c.ctx.SendBroadcast(NewIntent(WIFI_P2P_PEERS_CHANGED_ACTION))
}
