package source

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"dronetwin/internal/twin"
)

// SimulatedVehicle is a deterministic kinematic stepper. Given the same
// seed and the same command sequence at the same tick boundaries, two
// instances produce bit-identical trajectories. It never reads the wall
// clock; timestamps are stamped by the bridge on publish.
type SimulatedVehicle struct {
	mu      sync.Mutex
	profile Profile
	rng     *rand.Rand
	noise   float64 // stddev of positional noise in meters, 0 disables

	pos          twin.Position
	vel          twin.Velocity
	yaw          float64
	height       float64
	charge       float64 // battery as float, exposed rounded down
	speed        float64
	phase        twin.FlightPhase
	targetX      float64
	targetY      float64
	targetHeight float64
	targetYaw    float64
}

// NewSimulatedVehicle creates a grounded vehicle at the twin origin with a
// full battery. noise adds seeded positional jitter for realism; pass 0
// for exact reproducibility down to the integrator.
func NewSimulatedVehicle(profile Profile, seed int64, noise float64) *SimulatedVehicle {
	return &SimulatedVehicle{
		profile: profile,
		rng:     rand.New(rand.NewSource(seed)),
		noise:   noise,
		charge:  100,
		speed:   profile.SpeedSlowMPS,
		phase:   twin.PhaseGrounded,
	}
}

// Start is a no-op for the simulated vehicle.
func (v *SimulatedVehicle) Start(ctx context.Context) error { return nil }

// Stop halts the model. The last state remains readable via Step with no
// commands, so a stop mid-maneuver leaves no partial write behind.
func (v *SimulatedVehicle) Stop() error { return nil }

// HealthCheck always reports a live link; the simulator cannot lose one.
func (v *SimulatedVehicle) HealthCheck() twin.ConnStatus { return twin.StatusConnected }

// Step applies cmds, advances the model by elapsed, and returns the new state.
func (v *SimulatedVehicle) Step(ctx context.Context, elapsed time.Duration, cmds []twin.Command) (twin.VehicleState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, cmd := range cmds {
		v.apply(cmd)
	}
	v.integrate(elapsed.Seconds())
	return v.state(), nil
}

// Reset returns the model to its initial grounded state with a full
// battery, as after an operator session reset.
func (v *SimulatedVehicle) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = twin.Position{}
	v.vel = twin.Velocity{}
	v.yaw = 0
	v.height = 0
	v.charge = 100
	v.speed = v.profile.SpeedSlowMPS
	v.phase = twin.PhaseGrounded
	v.targetX, v.targetY = 0, 0
	v.targetHeight = 0
	v.targetYaw = 0
}

func (v *SimulatedVehicle) apply(cmd twin.Command) {
	switch cmd.Kind {
	case twin.CmdTakeOff:
		if v.phase == twin.PhaseGrounded {
			v.phase = twin.PhaseTakingOff
			v.targetHeight = v.profile.MinFlightHeightM
		}
	case twin.CmdLand:
		if v.phase == twin.PhaseAirborne || v.phase == twin.PhaseTakingOff {
			v.phase = twin.PhaseLanding
			v.targetHeight = 0
		}
	case twin.CmdEmergencyStop:
		// Motors off: the vehicle drops where it is.
		v.phase = twin.PhaseEmergencyStopped
		v.vel = twin.Velocity{}
		v.height = 0
		v.targetHeight = 0
		v.targetX, v.targetY = v.pos.X, v.pos.Y
	case twin.CmdMove:
		if cmd.Move == nil {
			return
		}
		limit := v.profile.RangeLimitM
		v.targetX = clamp(v.targetX+cmd.Move.DX, -limit, limit)
		v.targetY = clamp(v.targetY+cmd.Move.DY, -limit, limit)
		v.targetHeight = clamp(v.targetHeight+cmd.Move.DZ, v.profile.MinFlightHeightM, v.profile.MaxHeightM)
	case twin.CmdRotate:
		if cmd.Rotate == nil {
			return
		}
		v.targetYaw = twin.NormalizeAngle(v.targetYaw + cmd.Rotate.Degrees)
	case twin.CmdSetSpeed:
		if cmd.SetSpeed == nil {
			return
		}
		v.speed = clamp(cmd.SetSpeed.MPS, 0, v.profile.SpeedFastMPS)
	}
}

func (v *SimulatedVehicle) integrate(dt float64) {
	if dt <= 0 {
		return
	}

	flying := v.phase == twin.PhaseTakingOff || v.phase == twin.PhaseAirborne || v.phase == twin.PhaseLanding

	if flying {
		// Horizontal: velocity decays toward the target-derived value.
		dx := v.targetX - v.pos.X
		dy := v.targetY - v.pos.Y
		dist := math.Hypot(dx, dy)
		var desX, desY float64
		if dist > 1e-3 {
			s := math.Min(v.speed, dist/dt)
			desX = dx / dist * s
			desY = dy / dist * s
		}
		maxStep := v.profile.AccelMPS2 * dt
		v.vel.X = approach(v.vel.X, desX, maxStep)
		v.vel.Y = approach(v.vel.Y, desY, maxStep)
		v.pos.X += v.vel.X * dt
		v.pos.Y += v.vel.Y * dt

		// Vertical: height tracks the target at the climb rate.
		prevHeight := v.height
		v.height = approach(v.height, v.targetHeight, v.profile.ClimbRateMPS*dt)
		v.vel.Z = (v.height - prevHeight) / dt

		// Yaw tracks the target at the yaw rate.
		diff := twin.NormalizeAngle(v.targetYaw - v.yaw)
		step := v.profile.YawRateDPS * dt
		v.yaw = twin.NormalizeAngle(v.yaw + clamp(diff, -step, step))

		if v.noise > 0 {
			v.pos.X += v.rng.NormFloat64() * v.noise
			v.pos.Y += v.rng.NormFloat64() * v.noise
		}
	} else {
		v.vel = twin.Velocity{}
	}

	// Height clamps to the ground; touchdown completes a landing.
	if v.height < 0 {
		v.height = 0
	}
	if v.phase == twin.PhaseLanding && v.height <= 0 {
		v.phase = twin.PhaseGrounded
		v.vel = twin.Velocity{}
		v.targetX, v.targetY = v.pos.X, v.pos.Y
	}

	drain := v.profile.DrainGroundedPct
	if flying {
		drain = v.profile.DrainAirbornePct
	}
	v.charge = math.Max(0, v.charge-drain*dt)
	v.pos.Z = v.height
}

func (v *SimulatedVehicle) state() twin.VehicleState {
	return twin.VehicleState{
		Position:    v.pos,
		Orientation: twin.Orientation{Yaw: v.yaw},
		Velocity:    v.vel,
		Battery:     int(v.charge),
		Height:      v.height,
		SpeedMPS:    v.speed,
		Phase:       v.phase,
	}
}
