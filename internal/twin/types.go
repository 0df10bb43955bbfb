// Core twin state model shared by the bridge, sources, and sinks.
package twin

import (
	"math"
	"os"
	"time"
)

// FlightPhase describes where the vehicle is in its flight cycle.
type FlightPhase string

// Flight phase constants.
const (
	PhaseGrounded         FlightPhase = "grounded"
	PhaseTakingOff        FlightPhase = "taking_off"
	PhaseAirborne         FlightPhase = "airborne"
	PhaseLanding          FlightPhase = "landing"
	PhaseEmergencyStopped FlightPhase = "emergency_stopped"
)

// Mode selects which telemetry source feeds the twin.
type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeConnected  Mode = "connected"
)

// ConnStatus reflects the health of the link to the vehicle.
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
	StatusDegraded     ConnStatus = "degraded"
)

// Position is the vehicle position in meters relative to the twin origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation holds yaw/pitch/roll in degrees, each normalized to [-180,180).
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Velocity is the linear velocity vector in m/s.
type Velocity struct {
	X float64 `json:"vx"`
	Y float64 `json:"vy"`
	Z float64 `json:"vz"`
}

// VehicleState is one versioned sample of the twin.
type VehicleState struct {
	Position    Position    `json:"position"`
	Orientation Orientation `json:"orientation"`
	Velocity    Velocity    `json:"velocity"`
	Battery     int         `json:"battery"`   // percent, 0-100
	Height      float64     `json:"height"`    // meters above ground, >= 0
	SpeedMPS    float64     `json:"speed_mps"` // commanded cruise speed
	Phase       FlightPhase `json:"phase"`
	Timestamp   time.Time   `json:"ts"`
	Seq         uint64      `json:"seq"`
}

// Session is the bridge-owned connection and mode state.
type Session struct {
	Mode          Mode       `json:"mode"`
	Status        ConnStatus `json:"status"`
	LastTelemetry time.Time  `json:"last_telemetry"`
}

// Linked reports whether commands may be forwarded to the vehicle:
// in connected mode a degraded or lost link freezes everything but
// an emergency stop.
func (s Session) Linked() bool {
	if s.Mode != ModeConnected {
		return true
	}
	return s.Status == StatusConnected || s.Status == StatusConnecting
}

// Snapshot pairs a fully formed vehicle state with the session it was
// produced under.
type Snapshot struct {
	State   VehicleState `json:"state"`
	Session Session      `json:"session"`
}

// NormalizeAngle maps any angle in degrees onto [-180,180).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// SnapshotRow is the flattened snapshot record written to sinks.
type SnapshotRow struct {
	TwinID    string    `json:"twin_id"` // TAG
	X         float64   `json:"x"`       // FIELD
	Y         float64   `json:"y"`       // FIELD
	Z         float64   `json:"z"`       // FIELD
	Yaw       float64   `json:"yaw"`     // FIELD
	Pitch     float64   `json:"pitch"`   // FIELD
	Roll      float64   `json:"roll"`    // FIELD
	Battery   int       `json:"battery"` // FIELD
	Height    float64   `json:"height"`  // FIELD
	Phase     string    `json:"phase"`   // FIELD
	Mode      string    `json:"mode"`    // FIELD
	Link      string    `json:"link"`    // FIELD
	Seq       uint64    `json:"seq"`     // FIELD
	Timestamp time.Time `json:"ts"`      // TIME INDEX
}

// SnapshotTableName holds the table name used when writing to GreptimeDB.
// It defaults to "twin_snapshots" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var SnapshotTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "twin_snapshots"
}()

func (SnapshotRow) TableName() string {
	return SnapshotTableName
}

// Row flattens a snapshot for sink consumption.
func (s Snapshot) Row(twinID string) SnapshotRow {
	return SnapshotRow{
		TwinID:    twinID,
		X:         s.State.Position.X,
		Y:         s.State.Position.Y,
		Z:         s.State.Position.Z,
		Yaw:       s.State.Orientation.Yaw,
		Pitch:     s.State.Orientation.Pitch,
		Roll:      s.State.Orientation.Roll,
		Battery:   s.State.Battery,
		Height:    s.State.Height,
		Phase:     string(s.State.Phase),
		Mode:      string(s.Session.Mode),
		Link:      string(s.Session.Status),
		Seq:       s.State.Seq,
		Timestamp: s.State.Timestamp,
	}
}
