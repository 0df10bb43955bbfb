// YAML config loader with CUE schema validation
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Vehicle defines the physical limits of the modeled quadrotor.
type Vehicle struct {
	MinFlightHeightM float64 `yaml:"min_flight_height_m"`
	MaxHeightM       float64 `yaml:"max_height_m"`
	SpeedSlowMPS     float64 `yaml:"speed_slow_mps"`
	SpeedFastMPS     float64 `yaml:"speed_fast_mps"`
	ClimbRateMPS     float64 `yaml:"climb_rate_mps"`
	YawRateDPS       float64 `yaml:"yaw_rate_dps"`
	AccelMPS2        float64 `yaml:"accel_mps2"`
	RangeLimitM      float64 `yaml:"range_limit_m"`
	DrainAirbornePct float64 `yaml:"drain_airborne_pct"`
	DrainGroundedPct float64 `yaml:"drain_grounded_pct"`
}

// Transport holds the vendor channel addresses for connected mode.
type Transport struct {
	CommandAddr   string `yaml:"command_addr"`
	TelemetryAddr string `yaml:"telemetry_addr"`
}

// Config is the root twin configuration.
type Config struct {
	TwinID                   string    `yaml:"twin_id"`
	Mode                     string    `yaml:"mode"`
	TickIntervalMs           int       `yaml:"tick_interval_ms"`
	DegradedTimeoutTicks     int       `yaml:"degraded_timeout_ticks"`
	DisconnectedTimeoutTicks int       `yaml:"disconnected_timeout_ticks"`
	BatteryCriticalPct       int       `yaml:"battery_critical_pct"`
	SimulationSeed           int64     `yaml:"simulation_seed"`
	SimulationNoiseM         float64   `yaml:"simulation_noise_m"`
	Vehicle                  Vehicle   `yaml:"vehicle"`
	Transport                Transport `yaml:"transport"`
}

// TickInterval returns the loop period as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// applyDefaults fills unset fields with the stock values.
func (c *Config) applyDefaults() {
	if c.TwinID == "" {
		c.TwinID = "twin-01"
	}
	if c.Mode == "" {
		c.Mode = "simulation"
	}
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = 100
	}
	if c.DegradedTimeoutTicks <= 0 {
		c.DegradedTimeoutTicks = 2
	}
	if c.DisconnectedTimeoutTicks <= 0 {
		c.DisconnectedTimeoutTicks = 5
	}
	if c.BatteryCriticalPct <= 0 {
		c.BatteryCriticalPct = 5
	}
	v := &c.Vehicle
	if v.MinFlightHeightM <= 0 {
		v.MinFlightHeightM = 0.3
	}
	if v.MaxHeightM <= 0 {
		v.MaxHeightM = 10.0
	}
	if v.SpeedSlowMPS <= 0 {
		v.SpeedSlowMPS = 10.0
	}
	if v.SpeedFastMPS <= 0 {
		v.SpeedFastMPS = 28.8
	}
	if v.ClimbRateMPS <= 0 {
		v.ClimbRateMPS = 1.0
	}
	if v.YawRateDPS <= 0 {
		v.YawRateDPS = 90.0
	}
	if v.AccelMPS2 <= 0 {
		v.AccelMPS2 = 4.0
	}
	if v.RangeLimitM <= 0 {
		v.RangeLimitM = 10.0
	}
	if v.DrainAirbornePct <= 0 {
		v.DrainAirbornePct = 0.1
	}
	if v.DrainGroundedPct <= 0 {
		v.DrainGroundedPct = 0.01
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config, validates it against the embedded CUE schema,
// and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	if err := validateWithCue(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if cfg.Mode == "connected" && cfg.Transport.CommandAddr == "" {
		return nil, fmt.Errorf("connected mode requires transport.command_addr")
	}
	return &cfg, nil
}
