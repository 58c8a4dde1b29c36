package wire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/user/wifidirect-sim/util"
)

func beaconNames(beacons []Beacon) []string {
	names := make([]string, len(beacons))
	for i, b := range beacons {
		names[i] = b.DeviceName
	}
	return names
}

func TestScanBeaconsExcludesSelf(t *testing.T) {
	util.SetRandom()

	a := newTestWire(t, "Device-A")
	newTestWire(t, "Device-B")

	beacons := a.ScanBeacons()
	if len(beacons) != 1 {
		t.Fatalf("expected 1 beacon, got %v", beaconNames(beacons))
	}
	if beacons[0].DeviceName != "Device-B" {
		t.Errorf("scanned %s, want Device-B", beacons[0].DeviceName)
	}
	if beacons[0].MACAddress == a.MACAddress() {
		t.Error("beacon carries our own MAC")
	}
	if beacons[0].PrimaryDeviceType != PrimaryDeviceTypePhone {
		t.Errorf("primary device type = %s, want %s", beacons[0].PrimaryDeviceType, PrimaryDeviceTypePhone)
	}
}

func TestScanBeaconsSorted(t *testing.T) {
	util.SetRandom()

	scanner := newTestWire(t, "Scanner")
	newTestWire(t, "Charlie")
	newTestWire(t, "Alice")
	newTestWire(t, "Bob")

	got := beaconNames(scanner.ScanBeacons())
	want := []string{"Alice", "Bob", "Charlie"}
	if len(got) != len(want) {
		t.Fatalf("scanned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scanned %v, want sorted %v", got, want)
		}
	}
}

func TestSetDeviceNameRepublishes(t *testing.T) {
	util.SetRandom()

	a := newTestWire(t, "Device-A")
	b := newTestWire(t, "Device-B")

	if err := b.SetDeviceName("Device-B-Renamed"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	beacons := a.ScanBeacons()
	if len(beacons) != 1 || beacons[0].DeviceName != "Device-B-Renamed" {
		t.Errorf("scanned %v after rename, want Device-B-Renamed", beaconNames(beacons))
	}
}

func TestStopRemovesBeacon(t *testing.T) {
	util.SetRandom()

	a := newTestWire(t, "Device-A")
	b := NewWire(uuid.New().String(), "Device-B", PerfectSimulationConfig())
	if err := b.Start(); err != nil {
		t.Fatalf("failed to start Device-B: %v", err)
	}

	if len(a.ScanBeacons()) != 1 {
		t.Fatal("Device-B beacon missing before stop")
	}
	b.Stop()
	if got := a.ScanBeacons(); len(got) != 0 {
		t.Errorf("beacons after stop: %v, want none", beaconNames(got))
	}
}
