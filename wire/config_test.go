package wire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/wifidirect-sim/util"
)

func TestSimulationConfigRoundTrip(t *testing.T) {
	util.SetRandom()
	path := filepath.Join(util.GetDataDir(), "sim.yaml")

	cfg := DefaultSimulationConfig()
	cfg.ConnectFailureRate = 0.25
	cfg.Seed = 7

	if err := SaveSimulationConfig(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadSimulationConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadSimulationConfigParsesYaml(t *testing.T) {
	util.SetRandom()
	path := filepath.Join(util.GetDataDir(), "sim.yaml")

	yaml := "scan_interval_ms: 250\nconnect_failure_rate: 0.5\ndeterministic: true\nseed: 99\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSimulationConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ScanIntervalMs != 250 {
		t.Errorf("scan interval = %d, want 250", cfg.ScanIntervalMs)
	}
	if cfg.ConnectFailureRate != 0.5 {
		t.Errorf("connect failure rate = %v, want 0.5", cfg.ConnectFailureRate)
	}
	if !cfg.Deterministic || cfg.Seed != 99 {
		t.Errorf("deterministic/seed = %v/%d, want true/99", cfg.Deterministic, cfg.Seed)
	}
}

func TestLoadSimulationConfigMissingFile(t *testing.T) {
	util.SetRandom()
	if _, err := LoadSimulationConfig(filepath.Join(util.GetDataDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestApplyDefaultsFillsTiming(t *testing.T) {
	var cfg SimulationConfig
	ApplyDefaults(&cfg)

	def := DefaultSimulationConfig()
	if cfg.MinDiscoveryDelayMs != def.MinDiscoveryDelayMs || cfg.MaxDiscoveryDelayMs != def.MaxDiscoveryDelayMs {
		t.Errorf("discovery delays = %d/%d, want defaults", cfg.MinDiscoveryDelayMs, cfg.MaxDiscoveryDelayMs)
	}
	if cfg.ScanIntervalMs != def.ScanIntervalMs {
		t.Errorf("scan interval = %d, want default %d", cfg.ScanIntervalMs, def.ScanIntervalMs)
	}
	// Zero failure rates stay zero: a perfect rate is a valid choice
	if cfg.DiscoverFailureRate != 0 || cfg.ConnectFailureRate != 0 {
		t.Error("failure rates must not be defaulted")
	}
}

func TestApplyDefaultsKeepsDeterministicZeroDelays(t *testing.T) {
	cfg := SimulationConfig{Deterministic: true}
	ApplyDefaults(&cfg)

	if cfg.MaxDiscoveryDelayMs != 0 || cfg.MaxConnectDelayMs != 0 {
		t.Error("deterministic zero delays were overwritten")
	}
	if cfg.ScanIntervalMs == 0 {
		t.Error("scan interval must still get a default")
	}
}
