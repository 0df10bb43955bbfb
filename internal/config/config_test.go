package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("twin_id: alpha\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.TwinID != "alpha" {
		t.Errorf("twin_id = %q", cfg.TwinID)
	}
	if cfg.Mode != "simulation" {
		t.Errorf("mode = %q, want simulation", cfg.Mode)
	}
	if cfg.TickInterval() != 100*time.Millisecond {
		t.Errorf("tick interval = %v, want 100ms", cfg.TickInterval())
	}
	if cfg.DegradedTimeoutTicks != 2 || cfg.DisconnectedTimeoutTicks != 5 {
		t.Errorf("timeouts = %d/%d, want 2/5", cfg.DegradedTimeoutTicks, cfg.DisconnectedTimeoutTicks)
	}
	if cfg.BatteryCriticalPct != 5 {
		t.Errorf("battery threshold = %d, want 5", cfg.BatteryCriticalPct)
	}
	if cfg.Vehicle.MaxHeightM != 10.0 || cfg.Vehicle.SpeedFastMPS != 28.8 {
		t.Errorf("vehicle defaults = %+v", cfg.Vehicle)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
twin_id: bravo
mode: connected
tick_interval_ms: 50
battery_critical_pct: 10
vehicle:
  max_height_m: 5
transport:
  command_addr: 192.168.10.1:8889
  telemetry_addr: ":8890"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Mode != "connected" || cfg.TickIntervalMs != 50 || cfg.BatteryCriticalPct != 10 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Vehicle.MaxHeightM != 5 {
		t.Errorf("vehicle.max_height_m = %v, want 5", cfg.Vehicle.MaxHeightM)
	}
	// Unset vehicle fields still default.
	if cfg.Vehicle.ClimbRateMPS != 1.0 {
		t.Errorf("vehicle.climb_rate_mps = %v, want default 1.0", cfg.Vehicle.ClimbRateMPS)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := []string{
		"mode: autopilot\n",
		"tick_interval_ms: 0\n",
		"tick_interval_ms: -5\n",
		"battery_critical_pct: 250\n",
		"simulation_noise_m: -1\n",
		"vehicle:\n  max_height_m: -2\n",
	}
	for _, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("config %q accepted", raw)
		}
	}
}

func TestParseConnectedRequiresCommandAddr(t *testing.T) {
	_, err := Parse([]byte("mode: connected\n"))
	if err == nil || !strings.Contains(err.Error(), "command_addr") {
		t.Errorf("err = %v, want command_addr requirement", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twin.yaml")
	if err := os.WriteFile(path, []byte("twin_id: charlie\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TwinID != "charlie" {
		t.Errorf("twin_id = %q", cfg.TwinID)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestDefaultMatchesParseOfEmpty(t *testing.T) {
	parsed, err := Parse([]byte("{}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *Default() != *parsed {
		t.Errorf("Default() = %+v, parsed empty = %+v", Default(), parsed)
	}
}
