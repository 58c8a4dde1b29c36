package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/wifidirect-sim/android"
	"github.com/user/wifidirect-sim/kotlin"
	"github.com/user/wifidirect-sim/util"
	"github.com/user/wifidirect-sim/wire"
)

// FakeAndroidDevice is one simulated handset: a radio, a platform context
// with its own main looper, and the WiFi Direct coordinator on top.
type FakeAndroidDevice struct {
	name    string
	wire    *wire.Wire
	looper  *kotlin.Looper
	ctx     *kotlin.Context
	manager *android.WiFiDirectManager
}

func NewFakeAndroidDevice(name string) *FakeAndroidDevice {
	d := &FakeAndroidDevice{name: name}

	d.wire = wire.NewWire(uuid.New().String(), name, wire.DefaultSimulationConfig())
	if err := d.wire.Start(); err != nil {
		panic(err)
	}

	d.looper = kotlin.NewLooper()
	d.ctx = kotlin.NewContext(d.looper)
	d.ctx.RegisterService(kotlin.WifiP2pServiceName, kotlin.NewWifiP2pManager(d.wire))

	d.manager = android.NewWiFiDirectManager(d.ctx, d)
	d.manager.Initialize()
	return d
}

func (d *FakeAndroidDevice) Shutdown() {
	d.manager.Shutdown()
	d.looper.Quit()
	d.wire.Stop()
}

func (d *FakeAndroidDevice) OnLog(msg string) {
	// Status lines carry the interesting state transitions
}

func (d *FakeAndroidDevice) OnStatusChanged(status string) {
	fmt.Printf("[%s] %s\n", d.name, status)
}

func (d *FakeAndroidDevice) OnDevicesChanged(devices []*kotlin.WifiP2pDevice) {
	for _, dev := range devices {
		fmt.Printf("[%s]   peer: %s (%s) %s\n", d.name, dev.DeviceName, dev.DeviceAddress, dev.StatusString())
	}
}

func (d *FakeAndroidDevice) OnConnectionChanged(connected bool, info *kotlin.WifiP2pInfo) {
	if connected {
		role := "client"
		if info.IsGroupOwner {
			role = "group owner"
		}
		fmt.Printf("[%s] 🤝 group up, role: %s\n", d.name, role)
	} else {
		fmt.Printf("[%s] 💔 group down\n", d.name)
	}
}

func (d *FakeAndroidDevice) OnThisDeviceChanged(device *kotlin.WifiP2pDevice) {
	fmt.Printf("[%s] this device is now %s (%s)\n", d.name, device.DeviceName, device.DeviceAddress)
}

func main() {
	fmt.Println("=== Fake WiFi Direct Connection ===")
	fmt.Println()

	util.SetRandom()

	alpha := NewFakeAndroidDevice("Pixel-Alpha")
	bravo := NewFakeAndroidDevice("Galaxy-Bravo")
	defer alpha.Shutdown()
	defer bravo.Shutdown()

	// Alpha hunts for a peer and connects to the first one it sees
	alpha.manager.AutoDiscoverAndConnect()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if alpha.manager.IsConnected() && bravo.manager.IsConnected() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !alpha.manager.IsConnected() || !bravo.manager.IsConnected() {
		fmt.Println("\n=== Group never formed (discovery or negotiation failed) ===")
		return
	}

	time.Sleep(500 * time.Millisecond)
	fmt.Println()
	alpha.manager.Disconnect()

	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !alpha.manager.IsConnected() && !bravo.manager.IsConnected() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println()
	fmt.Println("=== Done ===")
}
