// Writer implementation printing snapshots to STDOUT
package sink

import (
	"encoding/json"
	"fmt"

	"dronetwin/internal/twin"
)

// Optional: snapshot writers may support batch mode.
type batchSnapshotWriter interface {
	WriteSnapshots([]twin.SnapshotRow) error
}

// StdoutWriter prints snapshot and result rows to STDOUT as JSON lines.
type StdoutWriter struct{}

// WriteSnapshot outputs a single snapshot row.
func (w *StdoutWriter) WriteSnapshot(row twin.SnapshotRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteSnapshots outputs multiple snapshot rows.
func (w *StdoutWriter) WriteSnapshots(rows []twin.SnapshotRow) error {
	for _, r := range rows {
		_ = w.WriteSnapshot(r)
	}
	return nil
}

// WriteResult outputs a reconciliation result.
func (w *StdoutWriter) WriteResult(res twin.ReconciliationResult) error {
	data, _ := json.Marshal(res)
	fmt.Println(string(data))
	return nil
}
