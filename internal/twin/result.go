package twin

import "time"

// ReconciliationResult records the outcome of one bridge tick.
type ReconciliationResult struct {
	Tick         uint64       `json:"tick"`
	Accepted     []Outcome    `json:"accepted,omitempty"`
	Rejected     []Outcome    `json:"rejected,omitempty"`
	State        VehicleState `json:"state"`
	Session      Session      `json:"session"`
	ModeFallback bool         `json:"mode_fallback"`
	StepErr      string       `json:"step_err,omitempty"`
	Timestamp    time.Time    `json:"ts"`
}

// Outcomes returns accepted and rejected outcomes in one slice, accepted
// first, preserving submission order within each group.
func (r ReconciliationResult) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(r.Accepted)+len(r.Rejected))
	out = append(out, r.Accepted...)
	out = append(out, r.Rejected...)
	return out
}
