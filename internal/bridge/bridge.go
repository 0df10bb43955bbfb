// Package bridge reconciles operator commands with the authoritative
// vehicle state, whether it comes from a simulated or a connected source.
package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dronetwin/internal/source"
	"dronetwin/internal/store"
	"dronetwin/internal/twin"
)

// SnapshotWriter receives the flattened snapshot row of every tick.
type SnapshotWriter interface {
	WriteSnapshot(twin.SnapshotRow) error
}

// ResultWriter receives the full reconciliation result of every tick.
type ResultWriter interface {
	WriteResult(twin.ReconciliationResult) error
}

// Optional: snapshot writers may support batch mode.
type batchSnapshotWriter interface {
	WriteSnapshots([]twin.SnapshotRow) error
}

// Sources holds the telemetry sources the bridge can arbitrate between.
// Connected may be nil when no transport is configured; mode switches to
// it are then rejected.
type Sources struct {
	Simulated source.TelemetrySource
	Connected source.TelemetrySource
}

func (s Sources) forMode(mode twin.Mode) source.TelemetrySource {
	if mode == twin.ModeConnected {
		return s.Connected
	}
	return s.Simulated
}

// Options tunes the bridge tick loop.
type Options struct {
	TwinID             string
	TickInterval       time.Duration
	StepTimeout        time.Duration // per-tick source deadline; defaults to 80% of the tick
	BatteryCriticalPct int
	HistorySize        int              // retained command outcomes
	Now                func() time.Time // injectable clock for deterministic tests
}

func (o *Options) defaults() {
	if o.TwinID == "" {
		o.TwinID = "twin-01"
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 100 * time.Millisecond
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = o.TickInterval * 8 / 10
	}
	if o.BatteryCriticalPct <= 0 {
		o.BatteryCriticalPct = 5
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 64
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type ctlKind int

const (
	ctlSwitchMode ctlKind = iota
	ctlReset
)

type ctlReq struct {
	kind  ctlKind
	mode  twin.Mode
	reply chan error
}

// Bridge owns the session and is the single writer of the state store.
// All session and state mutation happens on the Run goroutine; producers
// only touch the command queue and the control channel.
type Bridge struct {
	opts    Options
	store   *store.Store
	sources Sources
	active  source.TelemetrySource
	session twin.Session

	cmdCh chan twin.Command
	ctlCh chan ctlReq
	done  chan struct{} // closed when Run exits

	subMu sync.Mutex
	subs  map[*Subscription]struct{}

	histMu    sync.Mutex
	histOrder []string
	histByID  map[string]twin.Outcome

	snapWriters   []SnapshotWriter
	resultWriters []ResultWriter

	tickCount uint64
}

// New creates a bridge starting in the given mode. The store is seeded
// with a grounded vehicle at the origin.
func New(st *store.Store, sources Sources, mode twin.Mode, opts Options) *Bridge {
	opts.defaults()
	session := twin.Session{Mode: mode, Status: twin.StatusConnecting}
	if mode == twin.ModeSimulation {
		session.Status = twin.StatusConnected
	}
	return &Bridge{
		opts:     opts,
		store:    st,
		sources:  sources,
		active:   sources.forMode(mode),
		session:  session,
		cmdCh:    make(chan twin.Command, 128),
		ctlCh:    make(chan ctlReq, 8),
		done:     make(chan struct{}),
		subs:     make(map[*Subscription]struct{}),
		histByID: make(map[string]twin.Outcome),
	}
}

// AddSnapshotWriter registers a sink for per-tick snapshot rows. Not safe
// to call after Run has started.
func (b *Bridge) AddSnapshotWriter(w SnapshotWriter) {
	b.snapWriters = append(b.snapWriters, w)
}

// AddResultWriter registers a sink for reconciliation results. Not safe
// to call after Run has started.
func (b *Bridge) AddResultWriter(w ResultWriter) {
	b.resultWriters = append(b.resultWriters, w)
}

// Submit enqueues a command and returns its correlation id. The enqueue
// never blocks: a saturated queue returns twin.ErrQueueFull so the caller
// can surface the failure instead of losing the command silently.
func (b *Bridge) Submit(cmd twin.Command) (string, error) {
	if cmd.Correlation == "" {
		cmd.Correlation = uuid.New().String()
	}
	if cmd.SubmittedAt.IsZero() {
		cmd.SubmittedAt = b.opts.Now().UTC()
	}
	select {
	case b.cmdCh <- cmd:
		return cmd.Correlation, nil
	default:
		return "", twin.ErrQueueFull
	}
}

// Outcome looks up the validation outcome of a previously submitted
// command. ok is false while the command is still queued or once the
// outcome has aged out of the history window.
func (b *Bridge) Outcome(correlationID string) (twin.Outcome, bool) {
	b.histMu.Lock()
	defer b.histMu.Unlock()
	out, ok := b.histByID[correlationID]
	return out, ok
}

// CurrentSnapshot returns the latest published state and session.
func (b *Bridge) CurrentSnapshot() twin.Snapshot {
	return b.store.Current()
}

// Session returns the session as of the latest published snapshot.
func (b *Bridge) Session() twin.Session {
	return b.store.Current().Session
}

// RequestModeSwitch asks the tick loop to swap telemetry sources. Only
// permitted while the vehicle is grounded; rejected otherwise.
func (b *Bridge) RequestModeSwitch(mode twin.Mode) error {
	return b.control(ctlReq{kind: ctlSwitchMode, mode: mode, reply: make(chan error, 1)})
}

// ResetSession clears an emergency stop, returning the twin to Grounded.
func (b *Bridge) ResetSession() error {
	return b.control(ctlReq{kind: ctlReset, reply: make(chan error, 1)})
}

func (b *Bridge) control(req ctlReq) error {
	select {
	case <-b.done:
		return twin.ErrBridgeClosed
	case b.ctlCh <- req:
	default:
		return twin.ErrBridgeClosed
	}
	// The loop may exit before it services the request; never leave the
	// caller waiting on a reply that cannot come.
	select {
	case err := <-req.reply:
		return err
	case <-b.done:
		return twin.ErrBridgeClosed
	}
}

func (b *Bridge) recordOutcomes(outcomes []twin.Outcome) {
	b.histMu.Lock()
	defer b.histMu.Unlock()
	for _, out := range outcomes {
		id := out.Command.Correlation
		if _, exists := b.histByID[id]; !exists {
			b.histOrder = append(b.histOrder, id)
		}
		b.histByID[id] = out
	}
	for len(b.histOrder) > b.opts.HistorySize {
		delete(b.histByID, b.histOrder[0])
		b.histOrder = b.histOrder[1:]
	}
}
