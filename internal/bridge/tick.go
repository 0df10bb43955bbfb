package bridge

import (
	"context"
	"errors"
	"time"

	"dronetwin/internal/logging"
	"dronetwin/internal/twin"
)

// Height thresholds completing the transient flight phases. The vehicle,
// not the operator, decides when a maneuver is finished.
const (
	takeoffCompleteHeightM = 0.1
	landedHeightM          = 0.01
)

// Run starts the reconciliation loop and blocks until ctx is done or a
// fatal invariant violation halts the loop. It is the single execution
// context mutating the store and the session.
func (b *Bridge) Run(ctx context.Context) error {
	defer close(b.done)
	log := logging.FromContext(ctx)
	log.Info("starting bridge", "twin_id", b.opts.TwinID, "mode", b.session.Mode, "tick_interval", b.opts.TickInterval)

	startCtx, cancel := context.WithTimeout(ctx, b.opts.StepTimeout)
	err := b.active.Start(startCtx)
	cancel()
	if err != nil {
		log.Error("source start failed", "err", err)
		b.session.Status = twin.StatusDisconnected
	}

	ticker := time.NewTicker(b.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping bridge")
			if err := b.active.Stop(); err != nil {
				log.Error("source stop failed", "err", err)
			}
			b.closeSubs()
			return nil
		case req := <-b.ctlCh:
			req.reply <- b.handleControl(ctx, req)
		case <-ticker.C:
			if err := b.tick(ctx); err != nil {
				log.Error("halting tick loop", "err", err)
				_ = b.active.Stop()
				b.closeSubs()
				return err
			}
		}
	}
}

// tick runs one reconciliation step. A returned error is fatal; per-tick
// telemetry trouble is absorbed into the session status instead.
func (b *Bridge) tick(ctx context.Context) error {
	log := logging.FromContext(ctx)
	now := b.opts.Now().UTC()
	b.tickCount++

	// Decision basis for this tick: the state as published at its start.
	prev := b.store.Current()

	cmds := b.drain()
	var accepted, rejectedOut []twin.Outcome
	var forward []twin.Command
	for _, cmd := range cmds {
		out := twin.Validate(prev.State, b.session, cmd, b.opts.BatteryCriticalPct)
		if out.Accepted {
			accepted = append(accepted, out)
			forward = append(forward, cmd)
		} else {
			rejectedOut = append(rejectedOut, out)
			log.Info("command rejected", "kind", cmd.Kind, "reason", out.Reason, "correlation_id", cmd.Correlation)
		}
	}

	stepCtx, cancel := context.WithTimeout(ctx, b.opts.StepTimeout)
	state, stepErr := b.active.Step(stepCtx, b.opts.TickInterval, forward)
	cancel()
	if stepErr != nil {
		switch {
		case errors.Is(stepErr, twin.ErrTelemetryTimeout):
			log.Warn("telemetry timeout", "tick", b.tickCount)
		case errors.Is(stepErr, twin.ErrTransportFailure):
			log.Warn("transport failure", "tick", b.tickCount, "err", stepErr)
		default:
			log.Warn("telemetry step failed", "tick", b.tickCount, "err", stepErr)
		}
		// A failed sample keeps the last valid kinematics.
		state = prev.State
	}

	state.Phase = advancePhase(state.Phase, state.Height)
	state.Seq = prev.State.Seq + 1
	state.Timestamp = now

	prevStatus := b.session.Status
	b.session.Status = b.active.HealthCheck()
	if stepErr == nil {
		b.session.LastTelemetry = now
	}
	frozen := false
	if b.session.Mode == twin.ModeConnected && b.session.Status == twin.StatusDisconnected && prevStatus != twin.StatusDisconnected {
		// Never substitute simulated telemetry for a lost vehicle:
		// freeze command acceptance and surface the dead link until
		// the operator intervenes.
		frozen = true
		log.Error("link lost, commands frozen", "twin_id", b.opts.TwinID)
	}

	if err := b.store.Publish(state, b.session); err != nil {
		return err
	}

	result := twin.ReconciliationResult{
		Tick:      b.tickCount,
		Accepted:  accepted,
		Rejected:  rejectedOut,
		State:     state,
		Session:   b.session,
		Timestamp: now,
	}
	result.ModeFallback = frozen
	if stepErr != nil {
		result.StepErr = stepErr.Error()
	}
	b.recordOutcomes(result.Outcomes())
	b.emit(ctx, result)
	return nil
}

// drain empties the command queue in FIFO submission order.
func (b *Bridge) drain() []twin.Command {
	var cmds []twin.Command
	for {
		select {
		case cmd := <-b.cmdCh:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}

// advancePhase completes transient phases once the reported height
// crosses the threshold. Idempotent for settled phases.
func advancePhase(phase twin.FlightPhase, height float64) twin.FlightPhase {
	switch phase {
	case twin.PhaseTakingOff:
		if height > takeoffCompleteHeightM {
			return twin.PhaseAirborne
		}
	case twin.PhaseLanding:
		if height <= landedHeightM {
			return twin.PhaseGrounded
		}
	}
	return phase
}

// handleControl processes mode switches and session resets between ticks,
// on the loop goroutine that owns the session.
func (b *Bridge) handleControl(ctx context.Context, req ctlReq) error {
	log := logging.FromContext(ctx)
	snap := b.store.Current()

	switch req.kind {
	case ctlSwitchMode:
		if snap.State.Phase != twin.PhaseGrounded {
			return twin.ErrNotGrounded
		}
		if req.mode == b.session.Mode {
			return nil
		}
		next := b.sources.forMode(req.mode)
		if next == nil {
			return twin.ErrTransportFailure
		}
		if err := b.active.Stop(); err != nil {
			log.Error("source stop failed", "err", err)
		}
		startCtx, cancel := context.WithTimeout(ctx, b.opts.StepTimeout)
		err := next.Start(startCtx)
		cancel()
		if err != nil {
			return err
		}
		b.active = next
		b.session.Mode = req.mode
		b.session.Status = twin.StatusConnecting
		if req.mode == twin.ModeSimulation {
			b.session.Status = twin.StatusConnected
		}
		// Publish immediately so readers see the new mode before the
		// next tick.
		b.store.UpdateSession(b.session)
		log.Info("mode switched", "mode", req.mode)

	case ctlReset:
		type resettable interface{ Reset() }
		type phaseResettable interface{ ResetPhase() }
		if r, ok := b.active.(resettable); ok {
			r.Reset()
		} else if r, ok := b.active.(phaseResettable); ok {
			r.ResetPhase()
		}
		state := snap.State
		state.Phase = twin.PhaseGrounded
		state.Velocity = twin.Velocity{}
		state.Height = 0
		state.Timestamp = b.opts.Now().UTC()
		if b.session.Mode == twin.ModeSimulation {
			// A simulation reset restores the model's full battery.
			state = twin.VehicleState{Phase: twin.PhaseGrounded, Battery: 100, Timestamp: state.Timestamp}
		}
		b.session.Status = b.active.HealthCheck()
		b.store.Reset(state, b.session)
		log.Info("session reset", "mode", b.session.Mode)
	}

	b.emitSnapshot(b.store.Current())
	return nil
}
