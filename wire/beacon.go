package wire

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/user/wifidirect-sim/util"
)

// Real WiFi Direct behavior: discoverable devices answer probe requests with
// their device info. Here each device publishes a beacon file and scanning
// reads every other device's beacon (simulates over-the-air discovery).
// No global registries - each device reads/writes its own file.

func beaconPath(hardwareUUID string) string {
	return filepath.Join(util.GetBeaconDir(), fmt.Sprintf("wifidirect-%s.json", hardwareUUID))
}

// publishBeacon writes this device's beacon file, making it discoverable
func (w *Wire) publishBeacon() error {
	w.mu.RLock()
	beacon := Beacon{
		HardwareUUID:      w.hardwareUUID,
		DeviceName:        w.deviceName,
		MACAddress:        w.mac,
		PrimaryDeviceType: PrimaryDeviceTypePhone,
		UpdatedAt:         time.Now(),
	}
	w.mu.RUnlock()

	data, err := json.MarshalIndent(&beacon, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal beacon: %w", err)
	}
	return os.WriteFile(beaconPath(w.hardwareUUID), data, 0644)
}

// removeBeacon deletes this device's beacon file, making it undiscoverable
func (w *Wire) removeBeacon() {
	os.Remove(beaconPath(w.hardwareUUID))
}

// ScanBeacons reads every published beacon except our own, sorted by device
// name for a stable snapshot order
func (w *Wire) ScanBeacons() []Beacon {
	beacons := make([]Beacon, 0)

	pattern := filepath.Join(util.GetBeaconDir(), "wifidirect-*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return beacons
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var beacon Beacon
		if err := json.Unmarshal(data, &beacon); err != nil {
			continue
		}

		if beacon.HardwareUUID == w.hardwareUUID {
			continue
		}
		beacons = append(beacons, beacon)
	}

	sort.Slice(beacons, func(i, j int) bool {
		return beacons[i].DeviceName < beacons[j].DeviceName
	})
	return beacons
}

// PrimaryDeviceTypePhone is the WPS primary device type string for a phone
// (category 10, WiFi Alliance OUI, subcategory 5: smartphone)
const PrimaryDeviceTypePhone = "10-0050F204-5"
