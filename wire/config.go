package wire

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadSimulationConfig reads and parses a YAML simulation config file.
// Zero fields are filled in with defaults.
func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SaveSimulationConfig writes a YAML simulation config file to disk.
func SaveSimulationConfig(path string, cfg *SimulationConfig) error {
	ApplyDefaults(cfg)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyDefaults fills unset timing fields with the default simulation values.
// Failure rates are left alone: zero is a valid (perfect) rate.
func ApplyDefaults(cfg *SimulationConfig) {
	def := DefaultSimulationConfig()
	if cfg.MaxDiscoveryDelayMs == 0 && cfg.MinDiscoveryDelayMs == 0 && !cfg.Deterministic {
		cfg.MinDiscoveryDelayMs = def.MinDiscoveryDelayMs
		cfg.MaxDiscoveryDelayMs = def.MaxDiscoveryDelayMs
	}
	if cfg.ScanIntervalMs == 0 {
		cfg.ScanIntervalMs = def.ScanIntervalMs
	}
	if cfg.MaxConnectDelayMs == 0 && cfg.MinConnectDelayMs == 0 && !cfg.Deterministic {
		cfg.MinConnectDelayMs = def.MinConnectDelayMs
		cfg.MaxConnectDelayMs = def.MaxConnectDelayMs
	}
}
