package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dronetwin/internal/twin"
)

// Transport is the opaque vendor channel to a physical vehicle. Both
// calls must respect the ctx deadline. Physical retries live below this
// interface; the connected source only layers its health policy on top.
type Transport interface {
	SendCommand(ctx context.Context, payload []byte) error
	ReceiveTelemetry(ctx context.Context) ([]byte, error)
	Close() error
}

// ConnectedOptions tunes the health escalation policy of a connected source.
type ConnectedOptions struct {
	// DegradedAfter is the number of consecutive missed telemetry
	// intervals before the link reports Degraded.
	DegradedAfter int
	// DisconnectedAfter is the number of consecutive missed intervals
	// before the link reports Disconnected.
	DisconnectedAfter int
}

// DefaultConnectedOptions returns the stock escalation thresholds.
func DefaultConnectedOptions() ConnectedOptions {
	return ConnectedOptions{DegradedAfter: 2, DisconnectedAfter: 5}
}

// ConnectedVehicle bridges to a physical vehicle over a Transport. It
// forwards validated commands, polls for telemetry frames, and escalates
// its health status as frames go missing.
type ConnectedVehicle struct {
	mu        sync.Mutex
	transport Transport
	opts      ConnectedOptions

	started  bool
	gotFrame bool
	missed   int
	last     twin.VehicleState
	phase    twin.FlightPhase
}

// NewConnectedVehicle wraps transport with the twin's health policy.
func NewConnectedVehicle(transport Transport, opts ConnectedOptions) *ConnectedVehicle {
	if opts.DegradedAfter <= 0 {
		opts.DegradedAfter = 2
	}
	if opts.DisconnectedAfter <= opts.DegradedAfter {
		opts.DisconnectedAfter = opts.DegradedAfter + 3
	}
	return &ConnectedVehicle{
		transport: transport,
		opts:      opts,
		phase:     twin.PhaseGrounded,
	}
}

// Start puts the vehicle into command mode. The link stays Connecting
// until the first telemetry frame arrives.
func (v *ConnectedVehicle) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.transport.SendCommand(ctx, []byte("command")); err != nil {
		return fmt.Errorf("%w: enter command mode: %v", twin.ErrTransportFailure, err)
	}
	v.started = true
	return nil
}

// Stop closes the transport. The last valid state remains intact; Stop is
// safe to call at any point, including mid-step from another goroutine
// once the current step returns.
func (v *ConnectedVehicle) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started = false
	return v.transport.Close()
}

// HealthCheck reports the link status from the missed-frame counters.
func (v *ConnectedVehicle) HealthCheck() twin.ConnStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.missed >= v.opts.DisconnectedAfter:
		return twin.StatusDisconnected
	case v.gotFrame && v.missed >= v.opts.DegradedAfter:
		return twin.StatusDegraded
	case !v.gotFrame:
		if v.started && v.missed < v.opts.DisconnectedAfter {
			return twin.StatusConnecting
		}
		return twin.StatusDisconnected
	default:
		return twin.StatusConnected
	}
}

// Step sends each validated command over the transport, then polls for a
// telemetry frame. A missing or late frame returns the previous state
// with twin.ErrTelemetryTimeout so the bridge can escalate rather than
// stall.
func (v *ConnectedVehicle) Step(ctx context.Context, elapsed time.Duration, cmds []twin.Command) (twin.VehicleState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, cmd := range cmds {
		if err := v.transport.SendCommand(ctx, encodeCommand(cmd)); err != nil {
			v.missed++
			return v.last, fmt.Errorf("%w: send %s: %v", twin.ErrTransportFailure, cmd.Kind, err)
		}
		v.trackPhase(cmd)
	}

	frame, err := v.transport.ReceiveTelemetry(ctx)
	if err != nil {
		v.missed++
		return v.last, twin.ErrTelemetryTimeout
	}
	st, err := parseFrame(frame, v.last)
	if err != nil {
		v.missed++
		return v.last, fmt.Errorf("%w: %v", twin.ErrTelemetryTimeout, err)
	}
	// Complete transient phases from reported height so the mirror
	// stays in step with what the bridge publishes.
	switch {
	case v.phase == twin.PhaseTakingOff && st.Height > takeoffCompleteHeightM:
		v.phase = twin.PhaseAirborne
	case v.phase == twin.PhaseLanding && st.Height <= landedHeightM:
		v.phase = twin.PhaseGrounded
	}
	st.Phase = v.phase
	st.Seq = 0 // sequence numbers are assigned by the bridge
	v.last = st
	v.missed = 0
	v.gotFrame = true
	return st, nil
}

// trackPhase mirrors the command-driven part of the flight phase machine;
// the bridge completes transient phases from reported height.
func (v *ConnectedVehicle) trackPhase(cmd twin.Command) {
	switch cmd.Kind {
	case twin.CmdTakeOff:
		if v.phase == twin.PhaseGrounded {
			v.phase = twin.PhaseTakingOff
		}
	case twin.CmdLand:
		if v.phase == twin.PhaseAirborne || v.phase == twin.PhaseTakingOff {
			v.phase = twin.PhaseLanding
		}
	case twin.CmdEmergencyStop:
		v.phase = twin.PhaseEmergencyStopped
	}
}

// ResetPhase returns the mirrored phase machine to Grounded after an
// operator session reset.
func (v *ConnectedVehicle) ResetPhase() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phase = twin.PhaseGrounded
}
