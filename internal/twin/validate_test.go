package twin

import "testing"

func airborneState() VehicleState {
	return VehicleState{Phase: PhaseAirborne, Battery: 80, Height: 1.5}
}

func simSession() Session {
	return Session{Mode: ModeSimulation, Status: StatusConnected}
}

func TestValidate_EmergencyStopAlwaysAccepted(t *testing.T) {
	states := []VehicleState{
		{Phase: PhaseGrounded, Battery: 100},
		{Phase: PhaseTakingOff, Battery: 50, Height: 0.05},
		{Phase: PhaseAirborne, Battery: 3, Height: 2},
		{Phase: PhaseLanding, Battery: 1, Height: 0.2},
		{Phase: PhaseEmergencyStopped, Battery: 0},
	}
	sessions := []Session{
		simSession(),
		{Mode: ModeConnected, Status: StatusDisconnected},
		{Mode: ModeConnected, Status: StatusDegraded},
	}
	for _, st := range states {
		for _, sess := range sessions {
			out := Validate(st, sess, NewCommand(CmdEmergencyStop), 5)
			if !out.Accepted {
				t.Errorf("emergency stop rejected in phase %s, session %+v: %s", st.Phase, sess, out.Reason)
			}
		}
	}
}

func TestValidate_NoLinkFreezesEverythingElse(t *testing.T) {
	st := airborneState()
	for _, status := range []ConnStatus{StatusDisconnected, StatusDegraded} {
		sess := Session{Mode: ModeConnected, Status: status}
		for _, cmd := range []Command{
			NewCommand(CmdTakeOff), NewCommand(CmdLand), NewMove(1, 0, 0),
			NewRotate(90), NewSetSpeed(5),
		} {
			out := Validate(st, sess, cmd, 5)
			if out.Accepted || out.Reason != ReasonNoLink {
				t.Errorf("status %s cmd %s: got (%v, %q), want rejected %q", status, cmd.Kind, out.Accepted, out.Reason, ReasonNoLink)
			}
		}
	}
}

func TestValidate_NoLinkIgnoredInSimulation(t *testing.T) {
	// Simulation mode never freezes on link status.
	sess := Session{Mode: ModeSimulation, Status: StatusDisconnected}
	out := Validate(airborneState(), sess, NewMove(1, 0, 0), 5)
	if !out.Accepted {
		t.Errorf("move rejected in simulation mode: %s", out.Reason)
	}
}

func TestValidate_BatteryCritical(t *testing.T) {
	st := airborneState()
	st.Battery = 4
	cases := []struct {
		cmd      Command
		accepted bool
	}{
		{NewMove(1, 0, 0), false},
		{NewRotate(45), false},
		{NewSetSpeed(5), false},
		{NewCommand(CmdTakeOff), false},
		{NewCommand(CmdLand), true},
		{NewCommand(CmdEmergencyStop), true},
	}
	for _, tc := range cases {
		out := Validate(st, simSession(), tc.cmd, 5)
		if out.Accepted != tc.accepted {
			t.Errorf("battery 4%% cmd %s: got accepted=%v reason=%q", tc.cmd.Kind, out.Accepted, out.Reason)
		}
		if !tc.accepted && out.Reason != ReasonBatteryCritical {
			t.Errorf("cmd %s: reason %q, want %q", tc.cmd.Kind, out.Reason, ReasonBatteryCritical)
		}
	}
}

func TestValidate_GroundedRejectsAllButTakeOff(t *testing.T) {
	st := VehicleState{Phase: PhaseGrounded, Battery: 100}
	for _, cmd := range []Command{NewMove(1, 0, 0), NewRotate(10), NewSetSpeed(2), NewCommand(CmdLand)} {
		out := Validate(st, simSession(), cmd, 5)
		if out.Accepted || out.Reason != ReasonNotAirborne {
			t.Errorf("grounded cmd %s: got (%v, %q), want rejected %q", cmd.Kind, out.Accepted, out.Reason, ReasonNotAirborne)
		}
	}
	if out := Validate(st, simSession(), NewCommand(CmdTakeOff), 5); !out.Accepted {
		t.Errorf("takeoff rejected while grounded: %s", out.Reason)
	}
}

func TestValidate_EmergencyStoppedIsTerminal(t *testing.T) {
	st := VehicleState{Phase: PhaseEmergencyStopped, Battery: 50}
	for _, cmd := range []Command{NewCommand(CmdTakeOff), NewCommand(CmdLand), NewMove(1, 0, 0), NewRotate(5), NewSetSpeed(1)} {
		out := Validate(st, simSession(), cmd, 5)
		if out.Accepted || out.Reason != ReasonHalted {
			t.Errorf("halted cmd %s: got (%v, %q), want rejected %q", cmd.Kind, out.Accepted, out.Reason, ReasonHalted)
		}
	}
}

func TestValidate_TransientPhasesRejectMovement(t *testing.T) {
	for _, phase := range []FlightPhase{PhaseTakingOff, PhaseLanding} {
		st := VehicleState{Phase: phase, Battery: 90, Height: 0.2}
		for _, cmd := range []Command{NewMove(0, 1, 0), NewRotate(90), NewSetSpeed(3)} {
			out := Validate(st, simSession(), cmd, 5)
			if out.Accepted || out.Reason != ReasonTransitioning {
				t.Errorf("phase %s cmd %s: got (%v, %q), want rejected %q", phase, cmd.Kind, out.Accepted, out.Reason, ReasonTransitioning)
			}
		}
		// Land during takeoff is allowed: it aborts the climb.
		if out := Validate(st, simSession(), NewCommand(CmdLand), 5); !out.Accepted {
			t.Errorf("phase %s: land rejected: %s", phase, out.Reason)
		}
	}
}

func TestValidate_AirborneAcceptsMovement(t *testing.T) {
	st := airborneState()
	for _, cmd := range []Command{NewMove(1, 1, 0), NewRotate(-90), NewSetSpeed(12), NewCommand(CmdLand)} {
		if out := Validate(st, simSession(), cmd, 5); !out.Accepted {
			t.Errorf("airborne cmd %s rejected: %s", cmd.Kind, out.Reason)
		}
	}
}

func TestValidate_IsPure(t *testing.T) {
	st := airborneState()
	sess := simSession()
	cmd := NewMove(1, 0, 0)
	first := Validate(st, sess, cmd, 5)
	for i := 0; i < 10; i++ {
		again := Validate(st, sess, cmd, 5)
		if again != first {
			t.Fatalf("validation not deterministic: %+v vs %+v", first, again)
		}
	}
}
