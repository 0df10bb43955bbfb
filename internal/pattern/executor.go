package pattern

import (
	"context"
	"fmt"
	"time"

	"dronetwin/internal/twin"
)

// Submitter is the slice of the bridge an executor needs.
type Submitter interface {
	Submit(twin.Command) (string, error)
	Outcome(correlationID string) (twin.Outcome, bool)
}

// Executor feeds a command sequence into the bridge one step at a time,
// waiting for each outcome and stopping at the first rejection.
type Executor struct {
	bridge    Submitter
	stepPause time.Duration // settle time between steps
	pollEvery time.Duration
}

// NewExecutor creates an executor. stepPause inserts a settle delay after
// each accepted command, mirroring careful manual flying.
func NewExecutor(bridge Submitter, stepPause time.Duration) *Executor {
	return &Executor{bridge: bridge, stepPause: stepPause, pollEvery: 20 * time.Millisecond}
}

// Run submits cmds in order. It returns the outcomes gathered so far and
// an error if a command was rejected or the context ended early.
func (e *Executor) Run(ctx context.Context, cmds []twin.Command) ([]twin.Outcome, error) {
	var outcomes []twin.Outcome
	for _, cmd := range cmds {
		id, err := e.bridge.Submit(cmd)
		if err != nil {
			return outcomes, fmt.Errorf("submit %s: %w", cmd.Kind, err)
		}
		out, err := e.await(ctx, id)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
		if !out.Accepted {
			return outcomes, fmt.Errorf("pattern aborted: %s rejected: %s", cmd.Kind, out.Reason)
		}
		if e.stepPause > 0 {
			select {
			case <-time.After(e.stepPause):
			case <-ctx.Done():
				return outcomes, ctx.Err()
			}
		}
	}
	return outcomes, nil
}

// await polls the outcome history until the command has been reconciled.
func (e *Executor) await(ctx context.Context, correlationID string) (twin.Outcome, error) {
	ticker := time.NewTicker(e.pollEvery)
	defer ticker.Stop()
	for {
		if out, ok := e.bridge.Outcome(correlationID); ok {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return twin.Outcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
