// Package source provides the telemetry sources feeding the twin: a
// deterministic simulated vehicle and a network-connected real vehicle.
package source

import (
	"context"
	"time"

	"dronetwin/internal/twin"
)

// TelemetrySource produces vehicle state samples for the bridge tick loop.
// Step applies the already-validated commands and returns the resulting
// state. Implementations must honor the ctx deadline; a timed-out step
// returns the last valid state together with twin.ErrTelemetryTimeout.
type TelemetrySource interface {
	Start(ctx context.Context) error
	Stop() error
	Step(ctx context.Context, elapsed time.Duration, cmds []twin.Command) (twin.VehicleState, error)
	HealthCheck() twin.ConnStatus
}

// Height thresholds completing the transient flight phases. The vehicle,
// not the operator, decides when a maneuver is finished.
const (
	takeoffCompleteHeightM = 0.1
	landedHeightM          = 0.01
)

// Profile holds the physical limits of the vehicle model. Values mirror
// the Tello class of small quadrotors.
type Profile struct {
	MinFlightHeightM float64 // hover floor right after takeoff
	MaxHeightM       float64
	SpeedSlowMPS     float64 // cruise speed in slow mode
	SpeedFastMPS     float64 // absolute speed ceiling
	ClimbRateMPS     float64
	YawRateDPS       float64
	AccelMPS2        float64
	RangeLimitM      float64 // horizontal travel limit from origin
	DrainAirbornePct float64 // battery percent per second while flying
	DrainGroundedPct float64 // battery percent per second on the ground
}

// DefaultProfile returns the stock quadrotor profile.
func DefaultProfile() Profile {
	return Profile{
		MinFlightHeightM: 0.3,
		MaxHeightM:       10.0,
		SpeedSlowMPS:     10.0,
		SpeedFastMPS:     28.8,
		ClimbRateMPS:     1.0,
		YawRateDPS:       90.0,
		AccelMPS2:        4.0,
		RangeLimitM:      10.0,
		DrainAirbornePct: 0.1,
		DrainGroundedPct: 0.01,
	}
}

// approach moves cur toward des by at most maxStep, never overshooting.
func approach(cur, des, maxStep float64) float64 {
	diff := des - cur
	if diff > maxStep {
		return cur + maxStep
	}
	if diff < -maxStep {
		return cur - maxStep
	}
	return des
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
