package bridge

import (
	"context"

	"dronetwin/internal/logging"
	"dronetwin/internal/twin"
)

// SnapshotEvent is one delivery to a push subscriber. Events arrive in
// strictly increasing sequence order; Dropped reports how many snapshots
// the subscriber missed since the previous delivery because it could not
// keep up. A gap is therefore never silent.
type SnapshotEvent struct {
	Snapshot twin.Snapshot
	Dropped  uint64
}

// Subscription delivers snapshot events until Unsubscribe or bridge stop.
type Subscription struct {
	C       <-chan SnapshotEvent
	ch      chan SnapshotEvent
	dropped uint64
	closed  bool
}

// Subscribe registers a push subscriber. buffer bounds how far the
// subscriber may lag before deliveries are counted as dropped.
func (b *Bridge) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan SnapshotEvent, buffer)
	sub := &Subscription{C: ch, ch: ch}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	b.subMu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bridge) Unsubscribe(sub *Subscription) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
		sub.closed = true
	}
}

func (b *Bridge) closeSubs() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
		sub.closed = true
	}
}

// emitSnapshot pushes one snapshot to all subscribers without blocking
// the tick loop. Slow subscribers accumulate a dropped count delivered
// with their next successful event.
func (b *Bridge) emitSnapshot(snap twin.Snapshot) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for sub := range b.subs {
		ev := SnapshotEvent{Snapshot: snap, Dropped: sub.dropped}
		select {
		case sub.ch <- ev:
			sub.dropped = 0
		default:
			sub.dropped++
		}
	}
}

// emit fans a tick result out to writers and subscribers.
func (b *Bridge) emit(ctx context.Context, result twin.ReconciliationResult) {
	log := logging.FromContext(ctx)

	row := twin.Snapshot{State: result.State, Session: result.Session}.Row(b.opts.TwinID)
	for _, w := range b.snapWriters {
		if bw, ok := w.(batchSnapshotWriter); ok {
			if err := bw.WriteSnapshots([]twin.SnapshotRow{row}); err != nil {
				log.Error("snapshot batch write failed", "err", err)
			}
			continue
		}
		if err := w.WriteSnapshot(row); err != nil {
			log.Error("snapshot write failed", "err", err)
		}
	}
	for _, w := range b.resultWriters {
		if err := w.WriteResult(result); err != nil {
			log.Error("result write failed", "err", err)
		}
	}

	b.emitSnapshot(twin.Snapshot{State: result.State, Session: result.Session})
}
