package source

import (
	"context"
	"errors"
	"testing"

	"dronetwin/internal/twin"
)

// fakeTransport scripts telemetry frames and records sent payloads. A nil
// frame entry simulates a missed interval.
type fakeTransport struct {
	sent    [][]byte
	frames  [][]byte
	sendErr error
	closed  bool
}

func (f *fakeTransport) SendCommand(ctx context.Context, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeTransport) ReceiveTelemetry(ctx context.Context) ([]byte, error) {
	if len(f.frames) == 0 {
		return nil, context.DeadlineExceeded
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	if frame == nil {
		return nil, context.DeadlineExceeded
	}
	return frame, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestConnectedStartEntersCommandMode(t *testing.T) {
	tr := &fakeTransport{}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(tr.sent) != 1 || string(tr.sent[0]) != "command" {
		t.Errorf("sent = %q, want single \"command\"", tr.sent)
	}
	if got := v.HealthCheck(); got != twin.StatusConnecting {
		t.Errorf("status before first frame = %s, want %s", got, twin.StatusConnecting)
	}
}

func TestConnectedStepParsesFrame(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte("x:150;y:-50;h:120;yaw:90;bat:87;vgx:0.5"),
	}}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	st, err := v.Step(context.Background(), tick, nil)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.Position.X != 1.5 || st.Position.Y != -0.5 || st.Height != 1.2 {
		t.Errorf("cm conversion wrong: %+v", st)
	}
	if st.Orientation.Yaw != 90 || st.Battery != 87 || st.Velocity.X != 0.5 {
		t.Errorf("frame fields wrong: %+v", st)
	}
	if got := v.HealthCheck(); got != twin.StatusConnected {
		t.Errorf("status after frame = %s, want %s", got, twin.StatusConnected)
	}
}

func TestConnectedHealthEscalation(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte("h:0;bat:90"),
		nil, nil, nil, nil, nil,
	}}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx := context.Background()

	if _, err := v.Step(ctx, tick, nil); err != nil {
		t.Fatalf("first step: %v", err)
	}

	want := []twin.ConnStatus{
		twin.StatusConnected,    // 1 missed interval
		twin.StatusDegraded,     // 2
		twin.StatusDegraded,     // 3
		twin.StatusDegraded,     // 4
		twin.StatusDisconnected, // 5
	}
	for i, w := range want {
		st, err := v.Step(ctx, tick, nil)
		if !errors.Is(err, twin.ErrTelemetryTimeout) {
			t.Fatalf("miss %d: err = %v, want ErrTelemetryTimeout", i+1, err)
		}
		if st.Battery != 90 {
			t.Errorf("miss %d: last valid state not preserved: %+v", i+1, st)
		}
		if got := v.HealthCheck(); got != w {
			t.Errorf("after %d missed intervals: status = %s, want %s", i+1, got, w)
		}
	}
}

func TestConnectedRecoversAfterFrames(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte("h:0;bat:90"),
		nil, nil,
		[]byte("h:0;bat:89"),
	}}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	v.Start(context.Background())
	ctx := context.Background()

	v.Step(ctx, tick, nil)
	v.Step(ctx, tick, nil)
	v.Step(ctx, tick, nil)
	if got := v.HealthCheck(); got != twin.StatusDegraded {
		t.Fatalf("status = %s, want %s", got, twin.StatusDegraded)
	}

	st, err := v.Step(ctx, tick, nil)
	if err != nil {
		t.Fatalf("recovery step: %v", err)
	}
	if st.Battery != 89 {
		t.Errorf("battery = %d, want 89", st.Battery)
	}
	if got := v.HealthCheck(); got != twin.StatusConnected {
		t.Errorf("status after recovery = %s, want %s", got, twin.StatusConnected)
	}
}

func TestConnectedPhaseMirror(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte("h:5"),   // takeoff in flight, 5cm: still taking off
		[]byte("h:35"),  // above the takeoff threshold
		[]byte("h:35"),  // land sent, still high
		[]byte("h:0"),   // touched down
	}}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	v.Start(context.Background())
	ctx := context.Background()

	st, _ := v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdTakeOff)})
	if st.Phase != twin.PhaseTakingOff {
		t.Errorf("phase = %s, want %s", st.Phase, twin.PhaseTakingOff)
	}
	st, _ = v.Step(ctx, tick, nil)
	if st.Phase != twin.PhaseAirborne {
		t.Errorf("phase = %s, want %s", st.Phase, twin.PhaseAirborne)
	}
	st, _ = v.Step(ctx, tick, []twin.Command{twin.NewCommand(twin.CmdLand)})
	if st.Phase != twin.PhaseLanding {
		t.Errorf("phase = %s, want %s", st.Phase, twin.PhaseLanding)
	}
	st, _ = v.Step(ctx, tick, nil)
	if st.Phase != twin.PhaseGrounded {
		t.Errorf("phase = %s, want %s", st.Phase, twin.PhaseGrounded)
	}
}

func TestConnectedSendFailure(t *testing.T) {
	tr := &fakeTransport{sendErr: errors.New("wire down")}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())

	_, err := v.Step(context.Background(), tick, []twin.Command{twin.NewCommand(twin.CmdTakeOff)})
	if !errors.Is(err, twin.ErrTransportFailure) {
		t.Errorf("err = %v, want ErrTransportFailure", err)
	}
}

func TestConnectedStopClosesTransport(t *testing.T) {
	tr := &fakeTransport{}
	v := NewConnectedVehicle(tr, DefaultConnectedOptions())
	if err := v.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !tr.closed {
		t.Error("transport left open")
	}
}

func TestEncodeCommand(t *testing.T) {
	cases := []struct {
		cmd  twin.Command
		want string
	}{
		{twin.NewCommand(twin.CmdTakeOff), "takeoff"},
		{twin.NewCommand(twin.CmdLand), "land"},
		{twin.NewCommand(twin.CmdEmergencyStop), "emergency"},
		{twin.NewMove(1, -0.5, 0.2), "go 100 -50 20"},
		{twin.NewRotate(90), "cw 90"},
		{twin.NewRotate(-45), "ccw 45"},
		{twin.NewSetSpeed(0.5), "speed 50"},
	}
	for _, tc := range cases {
		if got := string(encodeCommand(tc.cmd)); got != tc.want {
			t.Errorf("encode %s: got %q, want %q", tc.cmd.Kind, got, tc.want)
		}
	}
}

func TestParseFrameErrors(t *testing.T) {
	prev := twin.VehicleState{Battery: 50}
	if _, err := parseFrame([]byte(""), prev); err == nil {
		t.Error("empty frame accepted")
	}
	if _, err := parseFrame([]byte("bat"), prev); err == nil {
		t.Error("frame without separator accepted")
	}
	if _, err := parseFrame([]byte("bat:abc"), prev); err == nil {
		t.Error("non-numeric value accepted")
	}
	// Unknown keys are tolerated, missing keys keep previous values.
	st, err := parseFrame([]byte("templ:60;h:10"), prev)
	if err != nil {
		t.Fatalf("frame with unknown key: %v", err)
	}
	if st.Battery != 50 || st.Height != 0.1 {
		t.Errorf("merge with previous state wrong: %+v", st)
	}
}
