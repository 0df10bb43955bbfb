package twin

// Rejection reasons returned by Validate. These strings are part of the
// operator-facing contract and are matched by the admin UI.
const (
	ReasonNoLink          = "no link"
	ReasonBatteryCritical = "battery critical"
	ReasonNotAirborne     = "not airborne"
	ReasonHalted          = "halted"
	ReasonTransitioning   = "transitioning"
)

// Outcome is the validation result for one command.
type Outcome struct {
	Command  Command `json:"command"`
	Accepted bool    `json:"accepted"`
	Reason   string  `json:"reason,omitempty"`
}

func accepted(cmd Command) Outcome {
	return Outcome{Command: cmd, Accepted: true}
}

func rejected(cmd Command, reason string) Outcome {
	return Outcome{Command: cmd, Accepted: false, Reason: reason}
}

// Validate decides whether cmd may be forwarded to the vehicle given the
// state and session at the start of the current tick. It is a pure
// function; rules apply in priority order, first match wins.
func Validate(state VehicleState, session Session, cmd Command, batteryCriticalPct int) Outcome {
	// An emergency stop is never refused.
	if cmd.Kind == CmdEmergencyStop {
		return accepted(cmd)
	}
	if session.Mode == ModeConnected && (session.Status == StatusDisconnected || session.Status == StatusDegraded) {
		return rejected(cmd, ReasonNoLink)
	}
	if state.Battery <= batteryCriticalPct && cmd.Kind != CmdLand {
		return rejected(cmd, ReasonBatteryCritical)
	}
	if state.Phase == PhaseGrounded && cmd.Kind != CmdTakeOff {
		return rejected(cmd, ReasonNotAirborne)
	}
	if state.Phase == PhaseEmergencyStopped {
		// Only a session reset leaves this phase.
		return rejected(cmd, ReasonHalted)
	}
	if state.Phase == PhaseTakingOff || state.Phase == PhaseLanding {
		switch cmd.Kind {
		case CmdMove, CmdRotate, CmdSetSpeed:
			return rejected(cmd, ReasonTransitioning)
		}
	}
	return accepted(cmd)
}
