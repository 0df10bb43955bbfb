package sink

import "dronetwin/internal/twin"

// SnapshotWriter matches the bridge's snapshot sink contract.
type SnapshotWriter interface {
	WriteSnapshot(twin.SnapshotRow) error
}

// ResultWriter matches the bridge's reconciliation sink contract.
type ResultWriter interface {
	WriteResult(twin.ReconciliationResult) error
}

// MultiWriter fans snapshot and result rows out to multiple writers.
type MultiWriter struct {
	snapWriters []SnapshotWriter
	resWriters  []ResultWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(sws []SnapshotWriter, rws []ResultWriter) *MultiWriter {
	return &MultiWriter{snapWriters: sws, resWriters: rws}
}

// WriteSnapshot sends a snapshot row to all writers.
func (mw *MultiWriter) WriteSnapshot(row twin.SnapshotRow) error {
	for _, w := range mw.snapWriters {
		if err := w.WriteSnapshot(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshots sends multiple snapshot rows to all writers, using batch
// mode where supported.
func (mw *MultiWriter) WriteSnapshots(rows []twin.SnapshotRow) error {
	for _, w := range mw.snapWriters {
		if bw, ok := w.(batchSnapshotWriter); ok {
			if err := bw.WriteSnapshots(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteSnapshot(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteResult sends a reconciliation result to all result writers.
func (mw *MultiWriter) WriteResult(res twin.ReconciliationResult) error {
	for _, w := range mw.resWriters {
		if err := w.WriteResult(res); err != nil {
			return err
		}
	}
	return nil
}
