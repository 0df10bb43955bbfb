package twin

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the bridge and sources.
var (
	// ErrQueueFull means the command queue rejected an enqueue; the
	// caller must retry or report, the command is never dropped silently.
	ErrQueueFull = errors.New("command queue full")

	// ErrTelemetryTimeout marks a telemetry step that exceeded its
	// per-tick deadline. Non-fatal; escalates the connection status.
	ErrTelemetryTimeout = errors.New("telemetry timeout")

	// ErrTransportFailure marks a failed exchange with the vehicle
	// transport. Non-fatal at the bridge level; downgrades the session.
	ErrTransportFailure = errors.New("transport failure")

	// ErrNotGrounded rejects mode switches requested while airborne.
	ErrNotGrounded = errors.New("mode switch requires grounded vehicle")

	// ErrBridgeClosed is returned for operations on a stopped bridge.
	ErrBridgeClosed = errors.New("bridge closed")
)

// InvariantViolation signals a programming defect in state handling,
// such as a sequence number regression. It is fatal: the tick loop halts
// rather than publish corrupted state.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("state invariant violated: %s", e.Detail)
}
