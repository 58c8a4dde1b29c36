package wire

import (
	"testing"
	"time"
)

func TestDeterministicSeedReproducible(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.Deterministic = true
	cfg.Seed = 42
	cfg.ConnectFailureRate = 0.5

	s1 := NewSimulator(cfg)
	s2 := NewSimulator(cfg)

	for i := 0; i < 100; i++ {
		if s1.ShouldFailConnect() != s2.ShouldFailConnect() {
			t.Fatalf("failure sequences diverged at roll %d", i)
		}
		if s1.ConnectDelay() != s2.ConnectDelay() {
			t.Fatalf("delay sequences diverged at roll %d", i)
		}
	}
}

func TestPerfectConfigNeverFailsOrWaits(t *testing.T) {
	s := NewSimulator(PerfectSimulationConfig())

	for i := 0; i < 1000; i++ {
		if s.ShouldFailDiscovery() || s.ShouldFailConnect() {
			t.Fatal("perfect config injected a failure")
		}
	}
	if s.DiscoveryDelay() != 0 || s.ConnectDelay() != 0 || s.FormationDelay() != 0 {
		t.Error("perfect config introduced delays")
	}
	if s.ScanInterval() != 50*time.Millisecond {
		t.Errorf("scan interval = %v, want 50ms", s.ScanInterval())
	}
}

func TestDelayStaysInBounds(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.Deterministic = true
	cfg.Seed = 1
	s := NewSimulator(cfg)

	min := time.Duration(cfg.MinConnectDelayMs) * time.Millisecond
	max := time.Duration(cfg.MaxConnectDelayMs) * time.Millisecond
	for i := 0; i < 200; i++ {
		d := s.ConnectDelay()
		if d < min || d >= max {
			t.Fatalf("connect delay %v outside [%v, %v)", d, min, max)
		}
	}
}

func TestNilConfigUsesDefaults(t *testing.T) {
	s := NewSimulator(nil)
	def := DefaultSimulationConfig()
	if s.Config().ScanIntervalMs != def.ScanIntervalMs {
		t.Errorf("scan interval = %d, want default %d", s.Config().ScanIntervalMs, def.ScanIntervalMs)
	}
	if s.Config().ConnectFailureRate != def.ConnectFailureRate {
		t.Errorf("connect failure rate = %v, want default %v", s.Config().ConnectFailureRate, def.ConnectFailureRate)
	}
}

func TestZeroScanIntervalFallsBack(t *testing.T) {
	cfg := PerfectSimulationConfig()
	cfg.ScanIntervalMs = 0
	s := NewSimulator(cfg)
	if s.ScanInterval() <= 0 {
		t.Error("zero scan interval must fall back to a positive value")
	}
}
