package twin

import (
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, -180},
		{-180, -180},
		{90, 90},
		{-90, -90},
		{270, -90},
		{360, 0},
		{540, -180},
		{-450, -90},
		{720, 0},
	}
	for _, tc := range cases {
		if got := NormalizeAngle(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSessionLinked(t *testing.T) {
	cases := []struct {
		sess Session
		want bool
	}{
		{Session{Mode: ModeSimulation, Status: StatusDisconnected}, true},
		{Session{Mode: ModeConnected, Status: StatusConnected}, true},
		{Session{Mode: ModeConnected, Status: StatusConnecting}, true},
		{Session{Mode: ModeConnected, Status: StatusDegraded}, false},
		{Session{Mode: ModeConnected, Status: StatusDisconnected}, false},
	}
	for _, tc := range cases {
		if got := tc.sess.Linked(); got != tc.want {
			t.Errorf("Linked(%s/%s) = %v, want %v", tc.sess.Mode, tc.sess.Status, got, tc.want)
		}
	}
}

func TestSnapshotRow(t *testing.T) {
	snap := Snapshot{
		State: VehicleState{
			Position:    Position{X: 1, Y: 2, Z: 3},
			Orientation: Orientation{Yaw: 45},
			Battery:     77,
			Height:      3,
			Phase:       PhaseAirborne,
			Seq:         9,
		},
		Session: Session{Mode: ModeConnected, Status: StatusDegraded},
	}
	row := snap.Row("alpha")
	if row.TwinID != "alpha" || row.X != 1 || row.Yaw != 45 || row.Battery != 77 {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.Phase != "airborne" || row.Mode != "connected" || row.Link != "degraded" {
		t.Errorf("unexpected enum columns: %+v", row)
	}
	if row.Seq != 9 {
		t.Errorf("seq = %d, want 9", row.Seq)
	}
}
