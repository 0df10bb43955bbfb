package twin

import (
	"time"

	"github.com/google/uuid"
)

// CommandKind enumerates the supported operator commands.
type CommandKind string

const (
	CmdTakeOff       CommandKind = "takeoff"
	CmdLand          CommandKind = "land"
	CmdMove          CommandKind = "move"
	CmdRotate        CommandKind = "rotate"
	CmdEmergencyStop CommandKind = "emergency_stop"
	CmdSetSpeed      CommandKind = "set_speed"
)

// Move carries a relative displacement in meters.
type Move struct {
	DX float64 `json:"dx" yaml:"dx"`
	DY float64 `json:"dy" yaml:"dy"`
	DZ float64 `json:"dz" yaml:"dz"`
}

// Rotate carries a relative yaw change in degrees; positive is clockwise.
type Rotate struct {
	Degrees float64 `json:"degrees" yaml:"degrees"`
}

// SetSpeed carries the requested cruise speed in m/s.
type SetSpeed struct {
	MPS float64 `json:"mps" yaml:"mps"`
}

// Command is an immutable operator intent. Exactly one payload field is
// set, matching Kind.
type Command struct {
	Kind        CommandKind `json:"kind"`
	Move        *Move       `json:"move,omitempty"`
	Rotate      *Rotate     `json:"rotate,omitempty"`
	SetSpeed    *SetSpeed   `json:"set_speed,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Correlation string      `json:"correlation_id"`
}

// NewCommand stamps a bare command of the given kind with a correlation id.
func NewCommand(kind CommandKind) Command {
	return Command{
		Kind:        kind,
		SubmittedAt: time.Now().UTC(),
		Correlation: uuid.New().String(),
	}
}

// NewMove builds a move command for the given displacement.
func NewMove(dx, dy, dz float64) Command {
	cmd := NewCommand(CmdMove)
	cmd.Move = &Move{DX: dx, DY: dy, DZ: dz}
	return cmd
}

// NewRotate builds a rotate command for the given yaw delta.
func NewRotate(degrees float64) Command {
	cmd := NewCommand(CmdRotate)
	cmd.Rotate = &Rotate{Degrees: degrees}
	return cmd
}

// NewSetSpeed builds a speed change command.
func NewSetSpeed(mps float64) Command {
	cmd := NewCommand(CmdSetSpeed)
	cmd.SetSpeed = &SetSpeed{MPS: mps}
	return cmd
}
