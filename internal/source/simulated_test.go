package source

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dronetwin/internal/twin"
)

const tick = 100 * time.Millisecond

// runScript drives a fresh vehicle through the given per-tick command
// batches and returns the full trajectory.
func runScript(t *testing.T, seed int64, noise float64, script [][]twin.Command, extraTicks int) []twin.VehicleState {
	t.Helper()
	v := NewSimulatedVehicle(DefaultProfile(), seed, noise)
	ctx := context.Background()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	var states []twin.VehicleState
	for _, cmds := range script {
		st, err := v.Step(ctx, tick, cmds)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		states = append(states, st)
	}
	for i := 0; i < extraTicks; i++ {
		st, err := v.Step(ctx, tick, nil)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		states = append(states, st)
	}
	return states
}

func TestSimulatedDeterminism(t *testing.T) {
	script := [][]twin.Command{
		{twin.NewCommand(twin.CmdTakeOff)},
		nil,
		{twin.NewMove(2, 1, 0.5)},
		nil,
		{twin.NewRotate(90), twin.NewSetSpeed(3)},
		nil,
	}
	a := runScript(t, 42, 0.05, script, 50)
	b := runScript(t, 42, 0.05, script, 50)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed, same commands, different trajectory (-a +b):\n%s", diff)
	}

	c := runScript(t, 7, 0.05, script, 50)
	if diff := cmp.Diff(a, c); diff == "" {
		t.Error("different seeds produced identical noisy trajectories")
	}
}

func TestSimulatedTakeoffClimbsToHoverFloor(t *testing.T) {
	states := runScript(t, 1, 0, [][]twin.Command{{twin.NewCommand(twin.CmdTakeOff)}}, 49)
	last := states[len(states)-1]
	if last.Height != DefaultProfile().MinFlightHeightM {
		t.Errorf("height after takeoff = %v, want %v", last.Height, DefaultProfile().MinFlightHeightM)
	}
	if last.Phase != twin.PhaseTakingOff {
		// The source reports the maneuver; phase completion belongs to
		// the bridge, which advances on the height threshold.
		t.Errorf("source phase = %s, want %s", last.Phase, twin.PhaseTakingOff)
	}
}

func TestSimulatedLandingTouchdown(t *testing.T) {
	script := [][]twin.Command{
		{twin.NewCommand(twin.CmdTakeOff)},
	}
	v := NewSimulatedVehicle(DefaultProfile(), 1, 0)
	ctx := context.Background()
	for _, cmds := range script {
		if _, err := v.Step(ctx, tick, cmds); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		v.Step(ctx, tick, nil)
	}
	if _, err := v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdLand)}); err != nil {
		t.Fatalf("land: %v", err)
	}
	var st twin.VehicleState
	for i := 0; i < 50; i++ {
		st, _ = v.Step(ctx, tick, nil)
		if st.Phase == twin.PhaseGrounded {
			break
		}
	}
	if st.Phase != twin.PhaseGrounded {
		t.Fatalf("vehicle never touched down: %+v", st)
	}
	if st.Height != 0 || st.Velocity != (twin.Velocity{}) {
		t.Errorf("touchdown state not at rest: %+v", st)
	}
}

func TestSimulatedEmergencyStopDropsVehicle(t *testing.T) {
	script := [][]twin.Command{
		{twin.NewCommand(twin.CmdTakeOff)},
		nil, nil, nil, nil,
		{twin.NewCommand(twin.CmdEmergencyStop)},
	}
	states := runScript(t, 1, 0, script, 0)
	last := states[len(states)-1]
	if last.Phase != twin.PhaseEmergencyStopped {
		t.Errorf("phase = %s, want %s", last.Phase, twin.PhaseEmergencyStopped)
	}
	if last.Height != 0 {
		t.Errorf("height after motor cut = %v, want 0", last.Height)
	}
}

func TestSimulatedBatteryDrains(t *testing.T) {
	v := NewSimulatedVehicle(DefaultProfile(), 1, 0)
	ctx := context.Background()
	v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdTakeOff)})

	// 100 ticks at the airborne drain rate of 0.1%/s is one percent.
	var st twin.VehicleState
	for i := 0; i < 100; i++ {
		st, _ = v.Step(ctx, tick, nil)
	}
	if st.Battery >= 100 {
		t.Errorf("battery did not drain: %d", st.Battery)
	}
	if st.Battery < 98 {
		t.Errorf("battery drained implausibly fast: %d", st.Battery)
	}
}

func TestSimulatedMoveClampedToRange(t *testing.T) {
	script := [][]twin.Command{
		{twin.NewCommand(twin.CmdTakeOff)},
		{twin.NewMove(100, 0, 0)},
	}
	states := runScript(t, 1, 0, script, 600)
	last := states[len(states)-1]
	limit := DefaultProfile().RangeLimitM
	if last.Position.X < limit-0.5 || last.Position.X > limit+0.5 {
		t.Errorf("x = %v, want settled at range limit %v", last.Position.X, limit)
	}
}

func TestSimulatedReset(t *testing.T) {
	v := NewSimulatedVehicle(DefaultProfile(), 1, 0)
	ctx := context.Background()
	v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdTakeOff)})
	for i := 0; i < 20; i++ {
		v.Step(ctx, tick, nil)
	}
	v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdEmergencyStop)})

	v.Reset()
	st, err := v.Step(ctx, tick, nil)
	if err != nil {
		t.Fatalf("step after reset: %v", err)
	}
	if st.Phase != twin.PhaseGrounded || st.Battery != 100 || st.Height != 0 {
		t.Errorf("reset state: %+v", st)
	}
}
