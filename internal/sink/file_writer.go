package sink

import (
	"encoding/json"
	"os"

	"dronetwin/internal/twin"
)

// FileWriter logs snapshots and reconciliation results to JSONL files.
type FileWriter struct {
	snapFile *os.File
	resFile  *os.File
	snapEnc  *json.Encoder
	resEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. resultPath may be empty to skip the
// reconciliation log.
func NewFileWriter(snapshotPath, resultPath string) (*FileWriter, error) {
	sf, err := os.Create(snapshotPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{snapFile: sf, snapEnc: json.NewEncoder(sf)}
	if resultPath != "" {
		rf, err := os.Create(resultPath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.resFile = rf
		fw.resEnc = json.NewEncoder(rf)
	}
	return fw, nil
}

// WriteSnapshot logs a single snapshot row.
func (f *FileWriter) WriteSnapshot(row twin.SnapshotRow) error {
	return f.snapEnc.Encode(row)
}

// WriteSnapshots logs multiple snapshot rows.
func (f *FileWriter) WriteSnapshots(rows []twin.SnapshotRow) error {
	for _, r := range rows {
		if err := f.WriteSnapshot(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteResult logs a reconciliation result, if enabled.
func (f *FileWriter) WriteResult(res twin.ReconciliationResult) error {
	if f.resEnc == nil {
		return nil
	}
	return f.resEnc.Encode(res)
}

// Close closes the underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.snapFile != nil {
		if e := f.snapFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.resFile != nil {
		if e := f.resFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
