package wire

import (
	"math/rand"
	"sync"
	"time"
)

// SimulationConfig controls the realism of WiFi Direct behavior
// Default: realistic discovery/negotiation timing with rare failures
type SimulationConfig struct {
	// Discovery timing (in milliseconds)
	MinDiscoveryDelayMs int     `yaml:"min_discovery_delay_ms"` // Default: 100ms before first scan result
	MaxDiscoveryDelayMs int     `yaml:"max_discovery_delay_ms"` // Default: 1000ms
	ScanIntervalMs      int     `yaml:"scan_interval_ms"`       // Default: 1000ms between beacon scans
	DiscoverFailureRate float64 `yaml:"discover_failure_rate"`  // Default: 0.01 (framework rejects discovery request)

	// Connection timing (in milliseconds)
	MinConnectDelayMs  int     `yaml:"min_connect_delay_ms"` // Default: 30ms
	MaxConnectDelayMs  int     `yaml:"max_connect_delay_ms"` // Default: 100ms
	ConnectFailureRate float64 `yaml:"connect_failure_rate"` // Default: 0.016 (GO negotiation fails)

	// GO negotiation / group formation delay (in milliseconds)
	GroupFormationDelayMs int `yaml:"group_formation_delay_ms"` // Default: 50ms

	// Deterministic mode for testing
	Deterministic bool  `yaml:"deterministic"` // Default: false (use for reproducible scenarios)
	Seed          int64 `yaml:"seed"`          // Random seed when Deterministic=true
}

// DefaultSimulationConfig returns realistic WiFi Direct simulation parameters
func DefaultSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		MinDiscoveryDelayMs: 100,
		MaxDiscoveryDelayMs: 1000,
		ScanIntervalMs:      1000,
		DiscoverFailureRate: 0.01,

		MinConnectDelayMs:  30,
		MaxConnectDelayMs:  100,
		ConnectFailureRate: 0.016,

		GroupFormationDelayMs: 50,

		Deterministic: false,
		Seed:          0,
	}
}

// PerfectSimulationConfig returns a 100% reliable, zero-delay config for testing
func PerfectSimulationConfig() *SimulationConfig {
	cfg := DefaultSimulationConfig()
	cfg.MinDiscoveryDelayMs = 0
	cfg.MaxDiscoveryDelayMs = 0
	cfg.ScanIntervalMs = 50
	cfg.DiscoverFailureRate = 0
	cfg.MinConnectDelayMs = 0
	cfg.MaxConnectDelayMs = 0
	cfg.ConnectFailureRate = 0
	cfg.GroupFormationDelayMs = 0
	cfg.Deterministic = true
	return cfg
}

// Simulator handles realistic WiFi Direct behavior simulation
type Simulator struct {
	config *SimulationConfig
	rng    *rand.Rand
	mu     sync.Mutex
}

// NewSimulator creates a new simulator with the given config (nil = defaults)
func NewSimulator(config *SimulationConfig) *Simulator {
	if config == nil {
		config = DefaultSimulationConfig()
	}

	seed := time.Now().UnixNano()
	if config.Deterministic {
		seed = config.Seed
	}

	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Config returns the simulation config in effect
func (s *Simulator) Config() *SimulationConfig {
	return s.config
}

// DiscoveryDelay returns how long to wait before the first scan result
func (s *Simulator) DiscoveryDelay() time.Duration {
	return s.randomDelay(s.config.MinDiscoveryDelayMs, s.config.MaxDiscoveryDelayMs)
}

// ScanInterval returns the interval between beacon scans
func (s *Simulator) ScanInterval() time.Duration {
	if s.config.ScanIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(s.config.ScanIntervalMs) * time.Millisecond
}

// ConnectDelay returns how long connection establishment takes
func (s *Simulator) ConnectDelay() time.Duration {
	return s.randomDelay(s.config.MinConnectDelayMs, s.config.MaxConnectDelayMs)
}

// FormationDelay returns how long GO negotiation takes once the link is up
func (s *Simulator) FormationDelay() time.Duration {
	return time.Duration(s.config.GroupFormationDelayMs) * time.Millisecond
}

// ShouldFailDiscovery rolls the dice on a discovery request rejection
func (s *Simulator) ShouldFailDiscovery() bool {
	return s.roll(s.config.DiscoverFailureRate)
}

// ShouldFailConnect rolls the dice on a connect request failure
func (s *Simulator) ShouldFailConnect() bool {
	return s.roll(s.config.ConnectFailureRate)
}

func (s *Simulator) roll(rate float64) bool {
	if rate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < rate
}

func (s *Simulator) randomDelay(minMs, maxMs int) time.Duration {
	if maxMs <= 0 {
		return 0
	}
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	s.mu.Lock()
	ms := minMs + s.rng.Intn(maxMs-minMs)
	s.mu.Unlock()
	return time.Duration(ms) * time.Millisecond
}
