package main

import (
	"os"

	"dronetwin/internal/bridge"
	"dronetwin/internal/sink"
)

// newWriters sets up snapshot and result writers from flags and env vars.
// It returns the writers and a cleanup function to close any resources.
func newWriters(printOnly bool, logFile string) (bridge.SnapshotWriter, bridge.ResultWriter, func(), error) {
	cleanup := func() {}

	var snapWriter bridge.SnapshotWriter
	var resWriter bridge.ResultWriter
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		sw := &sink.StdoutWriter{}
		snapWriter, resWriter = sw, sw
	} else {
		endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
		table := os.Getenv("GREPTIMEDB_TABLE")
		gw, err := sink.NewGreptimeDBWriter(endpoint, "public", table)
		if err != nil {
			return nil, nil, nil, err
		}
		snapWriter = gw
	}

	if logFile == "" {
		return snapWriter, resWriter, cleanup, nil
	}

	fw, err := sink.NewFileWriter(logFile, logFile+".results")
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup = func() { fw.Close() }
	sws := []sink.SnapshotWriter{snapWriter, fw}
	rws := []sink.ResultWriter{fw}
	if resWriter != nil {
		rws = append(rws, resWriter.(sink.ResultWriter))
	}
	mw := sink.NewMultiWriter(sws, rws)
	return mw, mw, cleanup, nil
}
