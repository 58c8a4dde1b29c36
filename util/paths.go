package util

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// GetDataDir returns the data directory path
func GetDataDir() string {
	if envDir := os.Getenv("WIFIDIRECT_SIM_DIR"); envDir != "" {
		return envDir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".wifidirect-sim-data")
}

// GetDeviceDir returns the per-device directory
func GetDeviceDir(deviceUUID string) string {
	return filepath.Join(GetDataDir(), deviceUUID)
}

// GetSocketDir returns the directory where Unix domain sockets are stored
func GetSocketDir() string {
	socketDir := filepath.Join(GetDataDir(), "sockets")
	// Ensure the directory exists
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		panic(err)
	}
	return socketDir
}

// GetBeaconDir returns the directory where discovery beacons are published
func GetBeaconDir() string {
	beaconDir := filepath.Join(GetDataDir(), "beacons")
	if err := os.MkdirAll(beaconDir, 0755); err != nil {
		panic(err)
	}
	return beaconDir
}

// SetRandom points the data directory at a fresh random location under the
// system temp dir. Tests call this first so parallel runs never share
// sockets or beacon files.
func SetRandom() {
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("wifidirect-sim-%d-%d",
		os.Getpid(), rand.New(rand.NewSource(time.Now().UnixNano())).Int63()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err)
	}
	os.Setenv("WIFIDIRECT_SIM_DIR", dir)
}
