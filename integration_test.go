package main

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/user/wifidirect-sim/android"
	"github.com/user/wifidirect-sim/kotlin"
	"github.com/user/wifidirect-sim/util"
	"github.com/user/wifidirect-sim/wire"
)

// quietListener records connection transitions and discards the rest
type quietListener struct {
	mu     sync.Mutex
	events []bool
}

func (l *quietListener) OnLog(string)                              {}
func (l *quietListener) OnStatusChanged(string)                    {}
func (l *quietListener) OnDevicesChanged([]*kotlin.WifiP2pDevice)  {}
func (l *quietListener) OnThisDeviceChanged(*kotlin.WifiP2pDevice) {}
func (l *quietListener) OnConnectionChanged(connected bool, info *kotlin.WifiP2pInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, connected)
}

func (l *quietListener) connectionEvents() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.events...)
}

type testDevice struct {
	wire     *wire.Wire
	looper   *kotlin.Looper
	manager  *android.WiFiDirectManager
	listener *quietListener
}

func newIntegrationDevice(t *testing.T, name string) *testDevice {
	t.Helper()

	w := wire.NewWire(uuid.New().String(), name, wire.PerfectSimulationConfig())
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start %s: %v", name, err)
	}
	t.Cleanup(w.Stop)

	looper := kotlin.NewLooper()
	t.Cleanup(looper.Quit)

	ctx := kotlin.NewContext(looper)
	ctx.RegisterService(kotlin.WifiP2pServiceName, kotlin.NewWifiP2pManager(w))

	listener := &quietListener{}
	mgr := android.NewWiFiDirectManager(ctx, listener)
	mgr.Initialize()
	t.Cleanup(mgr.Shutdown)

	return &testDevice{wire: w, looper: looper, manager: mgr, listener: listener}
}

func waitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTwoDevicesConnectAndDisconnect(t *testing.T) {
	util.SetRandom()

	alpha := newIntegrationDevice(t, "Device-Alpha")
	bravo := newIntegrationDevice(t, "Device-Bravo")

	alpha.manager.AutoDiscoverAndConnect()

	waitForCondition(t, "both devices connected", func() bool {
		return alpha.manager.IsConnected() && bravo.manager.IsConnected()
	})

	infoA := alpha.manager.ConnectionInfo()
	infoB := bravo.manager.ConnectionInfo()
	if infoA == nil || infoB == nil {
		t.Fatal("connection info missing after group formation")
	}
	if infoA.IsGroupOwner == infoB.IsGroupOwner {
		t.Errorf("expected exactly one group owner, got A=%v B=%v", infoA.IsGroupOwner, infoB.IsGroupOwner)
	}
	if infoA.GroupOwnerAddress != infoB.GroupOwnerAddress {
		t.Errorf("devices disagree on GO address: %s vs %s", infoA.GroupOwnerAddress, infoB.GroupOwnerAddress)
	}

	alpha.manager.Disconnect()

	waitForCondition(t, "both devices disconnected", func() bool {
		return !alpha.manager.IsConnected() && !bravo.manager.IsConnected()
	})

	if alpha.manager.ConnectedDevice() != nil {
		t.Error("alpha still holds a connected device after disconnect")
	}

	// Each side saw connected=true then connected=false, with no repeats
	for name, l := range map[string]*quietListener{"alpha": alpha.listener, "bravo": bravo.listener} {
		events := l.connectionEvents()
		var transitions []bool
		for i, e := range events {
			if i == 0 || events[i-1] != e {
				transitions = append(transitions, e)
			}
		}
		if len(transitions) != 2 || !transitions[0] || transitions[1] {
			t.Errorf("%s connection transitions = %v, want [true false]", name, events)
		}
	}
}

func TestAutoConnectPicksOnlyPeer(t *testing.T) {
	util.SetRandom()

	alpha := newIntegrationDevice(t, "Device-Alpha")
	newIntegrationDevice(t, "Device-Bravo")

	alpha.manager.AutoDiscoverAndConnect()

	waitForCondition(t, "alpha connected", func() bool {
		return alpha.manager.IsConnected()
	})

	device := alpha.manager.ConnectedDevice()
	if device == nil || device.DeviceName != "Device-Bravo" {
		t.Errorf("connected device = %v, want Device-Bravo", device)
	}
}
