// Package analysis derives flight metrics from the twin's snapshot stream.
package analysis

import (
	"math"
	"sync"

	"dronetwin/internal/twin"
)

// Delta summarizes the change between two consecutive states.
type Delta struct {
	HeightChange   float64 `json:"height_change"`
	PositionChange float64 `json:"position_change"`
	BatteryDrain   int     `json:"battery_drain"`
	SpeedChange    float64 `json:"speed_change"`
}

// Metrics aggregates the analyzer's rolling window.
type Metrics struct {
	Samples           int     `json:"samples"`
	AvgBatteryDrain   float64 `json:"avg_battery_drain"`
	AvgSpeed          float64 `json:"avg_speed"`
	PositionStability float64 `json:"position_stability"`
	HeightStability   float64 `json:"height_stability"`
}

// Analyzer keeps a bounded window of states and computes rolling metrics.
// Safe for one writer and concurrent readers.
type Analyzer struct {
	mu     sync.Mutex
	window int
	states []twin.VehicleState
}

// New creates an analyzer with the given window size (default 10).
func New(window int) *Analyzer {
	if window <= 0 {
		window = 10
	}
	return &Analyzer{window: window}
}

// Record appends a state and returns the delta against the previous one.
func (a *Analyzer) Record(state twin.VehicleState) Delta {
	a.mu.Lock()
	defer a.mu.Unlock()

	var delta Delta
	if n := len(a.states); n > 0 {
		prev := a.states[n-1]
		delta = Delta{
			HeightChange: state.Height - prev.Height,
			PositionChange: math.Hypot(
				state.Position.X-prev.Position.X,
				state.Position.Y-prev.Position.Y,
			),
			BatteryDrain: prev.Battery - state.Battery,
			SpeedChange:  speed(state) - speed(prev),
		}
	}
	a.states = append(a.states, state)
	if len(a.states) > a.window {
		a.states = a.states[len(a.states)-a.window:]
	}
	return delta
}

// Metrics computes rolling statistics over the window. Returns the zero
// value while fewer than two samples exist.
func (a *Analyzer) Metrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.states)
	if n < 2 {
		return Metrics{Samples: n}
	}

	var drain, speedSum float64
	for i := 1; i < n; i++ {
		drain += float64(a.states[i-1].Battery - a.states[i].Battery)
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	hs := make([]float64, n)
	for i, st := range a.states {
		xs[i] = st.Position.X
		ys[i] = st.Position.Y
		hs[i] = st.Height
		speedSum += speed(st)
	}
	return Metrics{
		Samples:           n,
		AvgBatteryDrain:   drain / float64(n-1),
		AvgSpeed:          speedSum / float64(n),
		PositionStability: (stddev(xs) + stddev(ys)) / 2,
		HeightStability:   stddev(hs),
	}
}

// PredictNext extrapolates the next state from the recent linear trend.
// With fewer than two samples the current state is returned unchanged.
func (a *Analyzer) PredictNext(current twin.VehicleState) twin.VehicleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.states)
	if n < 2 {
		return current
	}
	recent := a.states
	if n > 5 {
		recent = a.states[n-5:]
	}
	m := len(recent) - 1
	predicted := current
	predicted.Height += (recent[m].Height - recent[0].Height) / float64(m)
	predicted.Position.X += (recent[m].Position.X - recent[0].Position.X) / float64(m)
	predicted.Position.Y += (recent[m].Position.Y - recent[0].Position.Y) / float64(m)
	drift := float64(recent[m].Battery-recent[0].Battery) / float64(m)
	predicted.Battery = int(math.Max(0, float64(current.Battery)+drift))
	return predicted
}

func speed(st twin.VehicleState) float64 {
	return math.Sqrt(st.Velocity.X*st.Velocity.X + st.Velocity.Y*st.Velocity.Y + st.Velocity.Z*st.Velocity.Z)
}

func stddev(vals []float64) float64 {
	n := float64(len(vals))
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= n
	var sum float64
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / (n - 1))
}
