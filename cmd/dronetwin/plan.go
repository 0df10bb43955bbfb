package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dronetwin/internal/bridge"
	"dronetwin/internal/flightplan"
	"dronetwin/internal/logging"
	"dronetwin/internal/pattern"
	"dronetwin/internal/store"
	"dronetwin/internal/twin"
)

var (
	planConfigPath string
	planFile       string
	planPattern    string
	planSizeCM     float64
	planRadiusCM   float64
	planClimbCM    float64
	planLogFile    string
	planPause      time.Duration
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Fly a scripted plan or pattern in simulation",
	Long:  "plan runs a YAML flight plan or a built-in pattern (square, spiral, circle) against a simulated twin and records the flight.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmds, err := planCommands()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(planConfigPath)
		if err != nil {
			return err
		}
		logger := logging.New(logging.Options{})
		ctx, cancel := context.WithTimeout(logging.NewContext(context.Background(), logger), 10*time.Minute)
		defer cancel()

		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}
		st := store.New(twin.VehicleState{Phase: twin.PhaseGrounded, Battery: 100}, twin.Session{Mode: twin.ModeSimulation})
		b := bridge.New(st, sources, twin.ModeSimulation, bridge.Options{
			TwinID:             cfg.TwinID,
			TickInterval:       cfg.TickInterval(),
			BatteryCriticalPct: cfg.BatteryCriticalPct,
		})

		snapWriter, resWriter, cleanup, err := newWriters(true, planLogFile)
		if err != nil {
			return err
		}
		defer cleanup()
		b.AddSnapshotWriter(snapWriter)
		if resWriter != nil {
			b.AddResultWriter(resWriter)
		}

		runCtx, stopBridge := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() { errCh <- b.Run(runCtx) }()

		exec := pattern.NewExecutor(b, planPause)
		var outcomes []twin.Outcome
		_, flightErr := exec.Run(ctx, []twin.Command{twin.NewCommand(twin.CmdTakeOff)})
		if flightErr == nil {
			// Movement is rejected until the vehicle finishes climbing.
			waitForPhase(ctx, b, twin.PhaseAirborne, 10*time.Second)
			outcomes, flightErr = exec.Run(ctx, cmds)
		}
		if flightErr == nil {
			_, flightErr = exec.Run(ctx, []twin.Command{twin.NewCommand(twin.CmdLand)})
		}

		// Let the landing settle before stopping the loop.
		waitForPhase(ctx, b, twin.PhaseGrounded, 30*time.Second)
		stopBridge()
		if err := <-errCh; err != nil {
			return err
		}
		logger.Info("plan finished", "steps", len(outcomes), "err", flightErr)
		return flightErr
	},
}

// planCommands resolves the command sequence from --plan or --pattern.
func planCommands() ([]twin.Command, error) {
	if planFile != "" {
		p, err := flightplan.Load(planFile)
		if err != nil {
			return nil, err
		}
		return p.Commands()
	}
	switch planPattern {
	case "square":
		return pattern.Square(planSizeCM)
	case "spiral":
		return pattern.Spiral(planRadiusCM, planClimbCM)
	case "circle":
		return pattern.Circle(planRadiusCM)
	case "":
		return nil, fmt.Errorf("either --plan or --pattern is required")
	default:
		return nil, fmt.Errorf("unknown pattern %q", planPattern)
	}
}

// waitForPhase polls the twin until it reaches the phase or times out.
func waitForPhase(ctx context.Context, b *bridge.Bridge, phase twin.FlightPhase, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.CurrentSnapshot().State.Phase == phase {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func init() {
	planCmd.Flags().StringVar(&planConfigPath, "config", defaultConfigPath, "Path to twin configuration YAML")
	planCmd.Flags().StringVar(&planFile, "plan", "", "Path to a YAML flight plan")
	planCmd.Flags().StringVar(&planPattern, "pattern", "", "Built-in pattern: square, spiral, circle")
	planCmd.Flags().Float64Var(&planSizeCM, "size", 100, "Square side length in cm")
	planCmd.Flags().Float64Var(&planRadiusCM, "radius", 80, "Spiral/circle radius in cm")
	planCmd.Flags().Float64Var(&planClimbCM, "climb", 100, "Spiral climb in cm")
	planCmd.Flags().StringVar(&planLogFile, "log-file", "", "Path to export the flight log (JSONL)")
	planCmd.Flags().DurationVar(&planPause, "pause", 200*time.Millisecond, "Settle delay between pattern steps")
}
