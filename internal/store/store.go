// Package store holds the canonical, versioned twin state. The bridge is
// the single writer; every other component reads immutable snapshots.
package store

import (
	"fmt"
	"sync/atomic"
	"time"

	"dronetwin/internal/twin"
)

// Store publishes atomically swapped snapshots of the vehicle state and
// session. Readers never block the writer and never observe a partially
// written state: a snapshot is fully formed before the pointer swap.
type Store struct {
	current atomic.Pointer[twin.Snapshot]
}

// New creates a store seeded with the given initial state at sequence 0.
func New(initial twin.VehicleState, session twin.Session) *Store {
	s := &Store{}
	snap := twin.Snapshot{State: initial, Session: session}
	s.current.Store(&snap)
	return s
}

// Current returns the latest snapshot by value.
func (s *Store) Current() twin.Snapshot {
	return *s.current.Load()
}

// Seq returns the sequence number of the latest published state.
func (s *Store) Seq() uint64 {
	return s.current.Load().State.Seq
}

// Publish replaces the current snapshot. The new state's sequence number
// must be strictly greater than the published one; a regression is a
// programming defect and returns an InvariantViolation so the caller can
// halt instead of exposing corrupted state.
func (s *Store) Publish(state twin.VehicleState, session twin.Session) error {
	prev := s.current.Load()
	if state.Seq <= prev.State.Seq {
		return &twin.InvariantViolation{
			Detail: fmt.Sprintf("sequence regression: %d -> %d", prev.State.Seq, state.Seq),
		}
	}
	if state.Height < 0 {
		return &twin.InvariantViolation{
			Detail: fmt.Sprintf("negative height %.3f at seq %d", state.Height, state.Seq),
		}
	}
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now().UTC()
	}
	snap := twin.Snapshot{State: state, Session: session}
	s.current.Store(&snap)
	return nil
}

// UpdateSession republishes the current state under a new session. The
// sequence number is bumped so readers and subscribers observe the session
// change as a fresh snapshot rather than a stale duplicate.
func (s *Store) UpdateSession(session twin.Session) {
	prev := s.current.Load()
	state := prev.State
	state.Seq = prev.State.Seq + 1
	snap := twin.Snapshot{State: state, Session: session}
	s.current.Store(&snap)
}

// Reset reseeds the store after an explicit session reset. The sequence
// number keeps counting upward so readers never observe a regression.
func (s *Store) Reset(state twin.VehicleState, session twin.Session) {
	prev := s.current.Load()
	state.Seq = prev.State.Seq + 1
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now().UTC()
	}
	snap := twin.Snapshot{State: state, Session: session}
	s.current.Store(&snap)
}
