package kotlin

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/user/wifidirect-sim/util"
	"github.com/user/wifidirect-sim/wire"
)

type peersFn func(*WifiP2pDeviceList)

func (f peersFn) OnPeersAvailable(l *WifiP2pDeviceList) { f(l) }

type infoFn func(*WifiP2pInfo)

func (f infoFn) OnConnectionInfoAvailable(i *WifiP2pInfo) { f(i) }

// actionResult collects one ActionListener outcome
type actionResult struct {
	success chan struct{}
	failure chan int
}

func newActionResult() *actionResult {
	return &actionResult{
		success: make(chan struct{}, 1),
		failure: make(chan int, 1),
	}
}

func (a *actionResult) OnSuccess()           { a.success <- struct{}{} }
func (a *actionResult) OnFailure(reason int) { a.failure <- reason }

func (a *actionResult) mustSucceed(t *testing.T, what string) {
	t.Helper()
	select {
	case <-a.success:
	case reason := <-a.failure:
		t.Fatalf("%s failed with reason %d", what, reason)
	case <-time.After(3 * time.Second):
		t.Fatalf("%s: no result", what)
	}
}

func (a *actionResult) mustFail(t *testing.T, what string) int {
	t.Helper()
	select {
	case reason := <-a.failure:
		return reason
	case <-a.success:
		t.Fatalf("%s unexpectedly succeeded", what)
	case <-time.After(3 * time.Second):
		t.Fatalf("%s: no result", what)
	}
	return -1
}

func newTestDevice(t *testing.T, name string) (*WifiP2pManager, *Channel, *wire.Wire) {
	t.Helper()

	w := wire.NewWire(uuid.New().String(), name, wire.PerfectSimulationConfig())
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start %s: %v", name, err)
	}
	t.Cleanup(w.Stop)

	looper := NewLooper()
	t.Cleanup(looper.Quit)

	mgr := NewWifiP2pManager(w)
	ch := mgr.Initialize(NewContext(looper))
	return mgr, ch, w
}

func snapshot(t *testing.T, mgr *WifiP2pManager, ch *Channel) []*WifiP2pDevice {
	t.Helper()
	got := make(chan []*WifiP2pDevice, 1)
	mgr.RequestPeers(ch, peersFn(func(l *WifiP2pDeviceList) { got <- l.GetDeviceList() }))
	select {
	case devices := <-got:
		return devices
	case <-time.After(3 * time.Second):
		t.Fatal("no peer snapshot")
		return nil
	}
}

func connInfo(t *testing.T, mgr *WifiP2pManager, ch *Channel) *WifiP2pInfo {
	t.Helper()
	got := make(chan *WifiP2pInfo, 1)
	mgr.RequestConnectionInfo(ch, infoFn(func(i *WifiP2pInfo) { got <- i }))
	select {
	case info := <-got:
		return info
	case <-time.After(3 * time.Second):
		t.Fatal("no connection info")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func findDevice(devices []*WifiP2pDevice, name string) *WifiP2pDevice {
	for _, d := range devices {
		if d.DeviceName == name {
			return d
		}
	}
	return nil
}

// TestDiscoverPeersFindsBeacon: discovery surfaces another radio's beacon
func TestDiscoverPeersFindsBeacon(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")
	newTestDevice(t, "Device-B")

	result := newActionResult()
	mgrA.DiscoverPeers(chA, result)
	result.mustSucceed(t, "discoverPeers")

	waitFor(t, "Device-B in peer list", func() bool {
		d := findDevice(snapshot(t, mgrA, chA), "Device-B")
		return d != nil && d.Status == AVAILABLE
	})
}

// TestConnectFormsGroup: a PBC connect forms a group with exactly one owner
func TestConnectFormsGroup(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")
	mgrB, chB, wB := newTestDevice(t, "Device-B")

	discover := newActionResult()
	mgrA.DiscoverPeers(chA, discover)
	discover.mustSucceed(t, "discoverPeers")

	var target *WifiP2pDevice
	waitFor(t, "Device-B discovered", func() bool {
		target = findDevice(snapshot(t, mgrA, chA), "Device-B")
		return target != nil
	})

	connect := newActionResult()
	mgrA.Connect(chA, &WifiP2pConfig{
		DeviceAddress: target.DeviceAddress,
		Wps:           WpsInfo{Setup: WPS_PBC},
	}, connect)
	connect.mustSucceed(t, "connect")

	waitFor(t, "group formed on both sides", func() bool {
		return connInfo(t, mgrA, chA).GroupFormed && connInfo(t, mgrB, chB).GroupFormed
	})

	infoA := connInfo(t, mgrA, chA)
	infoB := connInfo(t, mgrB, chB)
	if infoA.IsGroupOwner == infoB.IsGroupOwner {
		t.Errorf("expected exactly one group owner, got A=%v B=%v", infoA.IsGroupOwner, infoB.IsGroupOwner)
	}
	if infoA.GroupOwnerAddress != wire.GroupOwnerAddress || infoB.GroupOwnerAddress != wire.GroupOwnerAddress {
		t.Errorf("unexpected GO address: A=%s B=%s", infoA.GroupOwnerAddress, infoB.GroupOwnerAddress)
	}

	waitFor(t, "Device-B marked CONNECTED", func() bool {
		d := findDevice(snapshot(t, mgrA, chA), "Device-B")
		return d != nil && d.Status == CONNECTED
	})

	if len(wB.ConnectedPeers()) != 1 {
		t.Errorf("Device-B should have 1 group link, got %d", len(wB.ConnectedPeers()))
	}
}

// TestRemoveGroupTearsDownBothSides: removal propagates to the peer
func TestRemoveGroupTearsDownBothSides(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")
	mgrB, chB, _ := newTestDevice(t, "Device-B")

	discover := newActionResult()
	mgrA.DiscoverPeers(chA, discover)
	discover.mustSucceed(t, "discoverPeers")

	var target *WifiP2pDevice
	waitFor(t, "Device-B discovered", func() bool {
		target = findDevice(snapshot(t, mgrA, chA), "Device-B")
		return target != nil
	})

	connect := newActionResult()
	mgrA.Connect(chA, &WifiP2pConfig{DeviceAddress: target.DeviceAddress, Wps: WpsInfo{Setup: WPS_PBC}}, connect)
	connect.mustSucceed(t, "connect")
	waitFor(t, "group formed", func() bool {
		return connInfo(t, mgrA, chA).GroupFormed && connInfo(t, mgrB, chB).GroupFormed
	})

	remove := newActionResult()
	mgrA.RemoveGroup(chA, remove)
	remove.mustSucceed(t, "removeGroup")

	waitFor(t, "group gone on both sides", func() bool {
		return !connInfo(t, mgrA, chA).GroupFormed && !connInfo(t, mgrB, chB).GroupFormed
	})
}

// TestRemoveGroupWithoutGroupFails mirrors the platform's ERROR result
func TestRemoveGroupWithoutGroupFails(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")

	remove := newActionResult()
	mgrA.RemoveGroup(chA, remove)
	if reason := remove.mustFail(t, "removeGroup"); reason != ERROR {
		t.Errorf("expected ERROR, got %d", reason)
	}
}

// TestKeypadWpsRejectedByPeer: a PBC-only peer refuses PIN methods and the
// target ends up FAILED
func TestKeypadWpsRejectedByPeer(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")
	newTestDevice(t, "Device-B")

	discover := newActionResult()
	mgrA.DiscoverPeers(chA, discover)
	discover.mustSucceed(t, "discoverPeers")

	var target *WifiP2pDevice
	waitFor(t, "Device-B discovered", func() bool {
		target = findDevice(snapshot(t, mgrA, chA), "Device-B")
		return target != nil
	})

	connect := newActionResult()
	mgrA.Connect(chA, &WifiP2pConfig{DeviceAddress: target.DeviceAddress, Wps: WpsInfo{Setup: WPS_KEYPAD}}, connect)
	connect.mustSucceed(t, "connect request") // acceptance, not formation

	waitFor(t, "Device-B marked FAILED", func() bool {
		d := findDevice(snapshot(t, mgrA, chA), "Device-B")
		return d != nil && d.Status == FAILED
	})
	if connInfo(t, mgrA, chA).GroupFormed {
		t.Error("rejected WPS method must not form a group")
	}
}

// TestDisabledFrameworkRejectsRequests: requests while P2P is off fail BUSY
func TestDisabledFrameworkRejectsRequests(t *testing.T) {
	util.SetRandom()

	mgrA, chA, _ := newTestDevice(t, "Device-A")
	chA.SetP2pEnabled(false)

	discover := newActionResult()
	mgrA.DiscoverPeers(chA, discover)
	if reason := discover.mustFail(t, "discoverPeers while disabled"); reason != BUSY {
		t.Errorf("expected BUSY, got %d", reason)
	}

	chA.SetP2pEnabled(true)
	retry := newActionResult()
	mgrA.DiscoverPeers(chA, retry)
	retry.mustSucceed(t, "discoverPeers after re-enable")
}

// TestSetDeviceNameBroadcasts: renaming updates the beacon and fires the
// this-device-changed broadcast
func TestSetDeviceNameBroadcasts(t *testing.T) {
	util.SetRandom()

	w := wire.NewWire(uuid.New().String(), "Device-A", wire.PerfectSimulationConfig())
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start wire: %v", err)
	}
	t.Cleanup(w.Stop)

	looper := NewLooper()
	t.Cleanup(looper.Quit)
	ctx := NewContext(looper)

	mgr := NewWifiP2pManager(w)
	ch := mgr.Initialize(ctx)

	r := &recordingReceiver{}
	ctx.RegisterReceiver(r, NewIntentFilter(WIFI_P2P_THIS_DEVICE_CHANGED_ACTION))

	rename := newActionResult()
	mgr.SetDeviceName(ch, "Device-A2", rename)
	rename.mustSucceed(t, "setDeviceName")

	waitForCount(t, r, 1)
	r.mu.Lock()
	device, _ := r.intents[0].Extra(EXTRA_WIFI_P2P_DEVICE).(*WifiP2pDevice)
	r.mu.Unlock()
	if device == nil || device.DeviceName != "Device-A2" {
		t.Errorf("broadcast carried %v, want renamed device", device)
	}
	if ch.ThisDevice().DeviceName != "Device-A2" {
		t.Error("local device record not updated")
	}
	if w.DeviceName() != "Device-A2" {
		t.Error("beacon name not updated")
	}
}
