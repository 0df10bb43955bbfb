package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"dronetwin/internal/twin"
)

// GreptimeDBWriter writes snapshot rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client *greptime.Client
	db     string
	table  string
}

// NewGreptimeDBWriter creates a GreptimeDB writer. The snapshot table is
// auto-created on first write with a 30d TTL.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	if tableName == "" {
		tableName = twin.SnapshotTableName
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		host = endpoint
		portStr = ""
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint port %q: %w", portStr, err)
		}
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client: client,
		db:     database,
		table:  tableName,
	}, nil
}

// WriteSnapshot inserts a single snapshot row.
func (w *GreptimeDBWriter) WriteSnapshot(row twin.SnapshotRow) error {
	return w.WriteSnapshots([]twin.SnapshotRow{row})
}

// WriteSnapshots inserts multiple snapshot rows.
func (w *GreptimeDBWriter) WriteSnapshots(rows []twin.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	// ttl hint applies when GreptimeDB auto-creates the table on first write.
	ctx := ingesterContext.New(context.Background(), ingesterContext.WithHints("ttl=30d"))

	tbl, err := table.New(w.table)
	if err != nil {
		return fmt.Errorf("greptime table: %w", err)
	}
	tbl.AddTagColumn("twin_id", types.STRING)
	tbl.AddFieldColumn("x", types.FLOAT64)
	tbl.AddFieldColumn("y", types.FLOAT64)
	tbl.AddFieldColumn("z", types.FLOAT64)
	tbl.AddFieldColumn("yaw", types.FLOAT64)
	tbl.AddFieldColumn("pitch", types.FLOAT64)
	tbl.AddFieldColumn("roll", types.FLOAT64)
	tbl.AddFieldColumn("battery", types.INT64)
	tbl.AddFieldColumn("height", types.FLOAT64)
	tbl.AddFieldColumn("phase", types.STRING)
	tbl.AddFieldColumn("mode", types.STRING)
	tbl.AddFieldColumn("link", types.STRING)
	tbl.AddFieldColumn("seq", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.TwinID,
			r.X, r.Y, r.Z,
			r.Yaw, r.Pitch, r.Roll,
			int64(r.Battery),
			r.Height,
			r.Phase, r.Mode, r.Link,
			int64(r.Seq),
			r.Timestamp,
		); err != nil {
			return fmt.Errorf("greptime row: %w", err)
		}
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}
