package wire

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/user/wifidirect-sim/logger"
	"github.com/user/wifidirect-sim/util"
)

// Wire simulates one device's WiFi Direct radio: a Unix domain socket at
// {dataDir}/sockets/wifidirect-{hardwareUUID}.sock carries GO negotiation
// and group traffic, beacon files carry discovery.
type Wire struct {
	hardwareUUID string
	deviceName   string
	mac          string
	intent       int // group owner intent, 0..15
	socketPath   string
	listener     net.Listener
	sim          *Simulator

	mu          sync.RWMutex
	connections map[string]*Connection // peer UUID -> group link
	group       *groupState

	// Callbacks into the platform layer
	groupFormedCallback    func(info GroupInfo)
	groupRemovedCallback   func()
	membersChangedCallback func(memberUUIDs []string)
	callbackMu             sync.RWMutex

	stopListening chan struct{}
	stopReading   map[string]chan struct{}
	scanStops     map[chan struct{}]struct{}
	stopMu        sync.Mutex

	pendingConnect  atomic.Bool
	cancelRequested atomic.Bool

	wg sync.WaitGroup
}

// NewWire creates a new Wire instance. A nil config uses realistic defaults.
func NewWire(hardwareUUID, deviceName string, config *SimulationConfig) *Wire {
	socketDir := util.GetSocketDir()
	return &Wire{
		hardwareUUID: hardwareUUID,
		deviceName:   deviceName,
		mac:          macFromUUID(hardwareUUID),
		intent:       7,
		socketPath:   filepath.Join(socketDir, fmt.Sprintf("wifidirect-%s.sock", hardwareUUID)),
		sim:          NewSimulator(config),
		connections:  make(map[string]*Connection),
		stopReading:  make(map[string]chan struct{}),
		scanStops:    make(map[chan struct{}]struct{}),
	}
}

// macFromUUID derives a stable locally-administered MAC from the hardware UUID
func macFromUUID(hardwareUUID string) string {
	u, err := uuid.Parse(hardwareUUID)
	if err != nil {
		u = uuid.NewSHA1(uuid.NameSpaceOID, []byte(hardwareUUID))
	}
	b := [16]byte(u)
	return fmt.Sprintf("02:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4])
}

// HardwareUUID returns this device's hardware UUID
func (w *Wire) HardwareUUID() string {
	return w.hardwareUUID
}

// MACAddress returns this device's simulated P2P interface MAC
func (w *Wire) MACAddress() string {
	return w.mac
}

// DeviceName returns the current discoverable name
func (w *Wire) DeviceName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.deviceName
}

// SetDeviceName renames the device and republishes the beacon
func (w *Wire) SetDeviceName(name string) error {
	w.mu.Lock()
	w.deviceName = name
	w.mu.Unlock()
	return w.publishBeacon()
}

// SetGroupOwnerIntent sets the intent value (0..15) used in GO negotiation
func (w *Wire) SetGroupOwnerIntent(intent int) {
	if intent < 0 {
		intent = 0
	}
	if intent > 15 {
		intent = 15
	}
	w.mu.Lock()
	w.intent = intent
	w.mu.Unlock()
}

// Simulator returns the simulator driving delays and failure injection
func (w *Wire) Simulator() *Simulator {
	return w.sim
}

// SetGroupFormedCallback registers the group-formation notification
func (w *Wire) SetGroupFormedCallback(cb func(info GroupInfo)) {
	w.callbackMu.Lock()
	w.groupFormedCallback = cb
	w.callbackMu.Unlock()
}

// SetGroupRemovedCallback registers the group-teardown notification
func (w *Wire) SetGroupRemovedCallback(cb func()) {
	w.callbackMu.Lock()
	w.groupRemovedCallback = cb
	w.callbackMu.Unlock()
}

// SetMembersChangedCallback registers the owner-side membership notification
func (w *Wire) SetMembersChangedCallback(cb func(memberUUIDs []string)) {
	w.callbackMu.Lock()
	w.membersChangedCallback = cb
	w.callbackMu.Unlock()
}

// Start listens on the device socket and publishes the discovery beacon
func (w *Wire) Start() error {
	// Clean up any existing socket file
	os.Remove(w.socketPath)

	listener, err := net.Listen("unix", w.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.socketPath, err)
	}

	w.listener = listener
	w.stopListening = make(chan struct{})

	if err := w.publishBeacon(); err != nil {
		listener.Close()
		return err
	}

	w.wg.Add(1)
	go w.acceptConnections()

	logger.Info(w.logPrefix(), "📡 Radio up (%s)", w.mac)
	return nil
}

// Stop tears down the radio: beacon, group, socket. Safe to call twice.
func (w *Wire) Stop() {
	w.mu.Lock()
	if w.stopListening == nil {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopListening:
		w.mu.Unlock()
		return
	default:
		close(w.stopListening)
	}
	w.mu.Unlock()

	w.removeBeacon()

	if w.listener != nil {
		w.listener.Close()
	}

	// Close all group links
	w.mu.Lock()
	for peerUUID, connection := range w.connections {
		w.stopMu.Lock()
		if stopChan, exists := w.stopReading[peerUUID]; exists {
			select {
			case <-stopChan:
			default:
				close(stopChan)
			}
			delete(w.stopReading, peerUUID)
		}
		w.stopMu.Unlock()
		connection.conn.Close()
	}
	w.connections = make(map[string]*Connection)
	w.group = nil
	w.mu.Unlock()

	// End any scans still running
	w.stopMu.Lock()
	for stopChan := range w.scanStops {
		delete(w.scanStops, stopChan)
		close(stopChan)
	}
	w.stopMu.Unlock()

	w.wg.Wait()
	os.Remove(w.socketPath)

	logger.Info(w.logPrefix(), "📴 Radio down")
}

// StartScan begins periodic beacon scanning. The callback fires on the scan
// goroutine whenever the visible peer set changes (and once on the first
// scan, even if empty). Stop a scan with StopScan; Stop also ends all scans.
func (w *Wire) StartScan(callback func(peers []Beacon)) chan struct{} {
	stopChan := make(chan struct{})
	w.stopMu.Lock()
	w.scanStops[stopChan] = struct{}{}
	w.stopMu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// First results take a realistic fraction of a scan window
		select {
		case <-stopChan:
			return
		case <-time.After(w.sim.DiscoveryDelay()):
		}

		var lastKey string
		first := true

		scan := func() {
			peers := w.ScanBeacons()
			key := ""
			for _, p := range peers {
				key += p.HardwareUUID + "|" + p.DeviceName + ";"
			}
			if first || key != lastKey {
				first = false
				lastKey = key
				callback(peers)
			}
		}

		scan()

		ticker := time.NewTicker(w.sim.ScanInterval())
		defer ticker.Stop()
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				scan()
			}
		}
	}()

	return stopChan
}

// StopScan stops one scan started with StartScan. Safe to call twice.
func (w *Wire) StopScan(stopChan chan struct{}) {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()
	if _, ok := w.scanStops[stopChan]; ok {
		delete(w.scanStops, stopChan)
		close(stopChan)
	}
}

// GroupInfo returns the current group from this device's point of view,
// or a zero GroupInfo when no group is formed
func (w *Wire) GroupInfo() GroupInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.groupInfoLocked()
}

func (w *Wire) groupInfoLocked() GroupInfo {
	if w.group == nil {
		return GroupInfo{}
	}
	return GroupInfo{
		GroupFormed:       true,
		IsGroupOwner:      w.group.isOwner,
		GroupOwnerAddress: GroupOwnerAddress,
		LocalAddress:      w.group.localAddress,
		NetworkName:       w.group.networkName,
	}
}

func (w *Wire) logPrefix() string {
	return shortID(w.hardwareUUID) + " Wire"
}

// shortID trims a hardware UUID down to a log-friendly prefix
func shortID(hardwareUUID string) string {
	if len(hardwareUUID) > 8 {
		return hardwareUUID[:8]
	}
	return hardwareUUID
}
