package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dronetwin/internal/admin"
	"dronetwin/internal/analysis"
	"dronetwin/internal/bridge"
	"dronetwin/internal/config"
	"dronetwin/internal/logging"
	"dronetwin/internal/sink"
	"dronetwin/internal/source"
	"dronetwin/internal/store"
	"dronetwin/internal/twin"
)

var (
	runConfigPath string
	runPrintOnly  bool
	runLogFile    string
	runTUI        bool
	runAdminAddr  string
	runLogJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the digital twin bridge",
	Long:  "run starts the synchronization bridge, the admin UI, and the configured telemetry source.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(runConfigPath)
		if err != nil {
			return err
		}
		if twinID := os.Getenv("TWIN_ID"); twinID != "" {
			cfg.TwinID = twinID
		}
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			cfg.TickIntervalMs = int(d.Milliseconds())
		}

		logger := logging.New(logging.Options{JSON: runLogJSON})
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), logger))
		defer cancel()

		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}
		mode := twin.Mode(cfg.Mode)
		st := store.New(twin.VehicleState{Phase: twin.PhaseGrounded, Battery: 100}, twin.Session{Mode: mode})
		b := bridge.New(st, sources, mode, bridge.Options{
			TwinID:             cfg.TwinID,
			TickInterval:       cfg.TickInterval(),
			BatteryCriticalPct: cfg.BatteryCriticalPct,
		})

		snapWriter, resWriter, cleanup, err := newWriters(runPrintOnly || runTUI, runLogFile)
		if err != nil {
			return err
		}
		defer cleanup()
		if !runTUI {
			b.AddSnapshotWriter(snapWriter)
			if resWriter != nil {
				b.AddResultWriter(resWriter)
			}
		}

		var tui *sink.TUIWriter
		if runTUI {
			tui = sink.NewTUIWriter(b)
			defer tui.Close()
			b.AddSnapshotWriter(tui)
			b.AddResultWriter(tui)
		}

		analyzer := analysis.New(10)
		sub := b.Subscribe(32)
		go func() {
			for ev := range sub.C {
				analyzer.Record(ev.Snapshot.State)
			}
		}()

		srv := admin.NewServer(b, analyzer)
		go func() {
			logger.Info("admin UI listening", "addr", runAdminAddr)
			if err := srv.Start(ctx, runAdminAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server failed", "err", err)
			}
		}()

		errCh := make(chan error, 1)
		go func() { errCh <- b.Run(ctx) }()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
			cancel()
			err = <-errCh
		case err = <-errCh:
			cancel()
		}
		logger.Info("twin stopped")
		return err
	},
}

// loadConfig reads the config file or falls back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildSources constructs the simulated source and, when a transport is
// configured, the connected source.
func buildSources(cfg *config.Config) (bridge.Sources, error) {
	profile := source.Profile{
		MinFlightHeightM: cfg.Vehicle.MinFlightHeightM,
		MaxHeightM:       cfg.Vehicle.MaxHeightM,
		SpeedSlowMPS:     cfg.Vehicle.SpeedSlowMPS,
		SpeedFastMPS:     cfg.Vehicle.SpeedFastMPS,
		ClimbRateMPS:     cfg.Vehicle.ClimbRateMPS,
		YawRateDPS:       cfg.Vehicle.YawRateDPS,
		AccelMPS2:        cfg.Vehicle.AccelMPS2,
		RangeLimitM:      cfg.Vehicle.RangeLimitM,
		DrainAirbornePct: cfg.Vehicle.DrainAirbornePct,
		DrainGroundedPct: cfg.Vehicle.DrainGroundedPct,
	}
	sources := bridge.Sources{
		Simulated: source.NewSimulatedVehicle(profile, cfg.SimulationSeed, cfg.SimulationNoiseM),
	}
	if cfg.Transport.CommandAddr != "" {
		transport, err := source.NewUDPTransport(cfg.Transport.CommandAddr, cfg.Transport.TelemetryAddr)
		if err != nil {
			return bridge.Sources{}, err
		}
		sources.Connected = source.NewConnectedVehicle(transport, source.ConnectedOptions{
			DegradedAfter:     cfg.DegradedTimeoutTicks,
			DisconnectedAfter: cfg.DisconnectedTimeoutTicks,
		})
	}
	return sources, nil
}

const defaultConfigPath = "config/twin.yaml"

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", defaultConfigPath, "Path to twin configuration YAML")
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print snapshots to STDOUT instead of writing to DB")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export flight logs (JSONL)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Render the twin in a terminal dashboard")
	runCmd.Flags().StringVar(&runAdminAddr, "addr", ":8080", "Admin UI listen address")
	runCmd.Flags().BoolVar(&runLogJSON, "log-json", false, "Log in JSON format")
}
