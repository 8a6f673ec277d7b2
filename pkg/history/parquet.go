package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/ja7ad/procmetrics/pkg/types"
)

// Row is the parquet schema of one process observation.
type Row struct {
	Session   string `parquet:"session,dict"`
	AtUnixMs  int64  `parquet:"at_unix_ms"`
	PID       int64  `parquet:"pid"`
	PPID      int64  `parquet:"ppid"`
	Name      string `parquet:"name,dict"`
	CmdLine   string `parquet:"cmdline"`
	Username  string `parquet:"username,dict"`
	Cgroup    string `parquet:"cgroup,dict"`
	State     string `parquet:"state,dict"`
	StartedAt int64  `parquet:"started_at_unix_ms"`

	CPUPercent           float64 `parquet:"cpu_percent"`
	CumulativeCPUPercent float64 `parquet:"cumulative_cpu_percent"`
	ResidentBytes        int64   `parquet:"resident_bytes"`
	MemoryPercent        float64 `parquet:"memory_percent"`
	Threads              int64   `parquet:"threads"`

	NetInRate            float64 `parquet:"net_in_bps"`
	NetOutRate           float64 `parquet:"net_out_bps"`
	DiskReadRate         float64 `parquet:"disk_read_bps"`
	DiskWriteRate        float64 `parquet:"disk_write_bps"`
	DiskLogicalWriteRate float64 `parquet:"disk_logical_write_bps"`

	Flags string `parquet:"flags,dict"`
}

func toRow(session string, snap types.Snapshot, p types.ProcessInfo) Row {
	r := Row{
		Session:              session,
		AtUnixMs:             snap.At.UnixMilli(),
		PID:                  int64(p.PID),
		PPID:                 int64(p.PPID),
		Name:                 p.Name,
		CmdLine:              p.CmdLine,
		Username:             p.Username,
		Cgroup:               p.Cgroup,
		State:                p.State,
		CPUPercent:           p.CPUPercent,
		CumulativeCPUPercent: p.CumulativeCPUPercent,
		ResidentBytes:        int64(p.ResidentBytes),
		MemoryPercent:        p.MemoryPercent,
		Threads:              int64(p.Threads),
		NetInRate:            float64(p.NetInRate),
		NetOutRate:           float64(p.NetOutRate),
		DiskReadRate:         float64(p.DiskReadRate),
		DiskWriteRate:        float64(p.DiskWriteRate),
		DiskLogicalWriteRate: float64(p.DiskLogicalWriteRate),
		Flags:                p.Flags.String(),
	}
	if !p.StartedAt.IsZero() {
		r.StartedAt = p.StartedAt.UnixMilli()
	}
	return r
}

// ParquetRecorder appends every recorded snapshot to a parquet file, one row
// group per snapshot. The file is only readable after Close.
type ParquetRecorder struct {
	log     *slog.Logger
	session uuid.UUID

	mu     sync.Mutex
	f      *os.File
	w      *parquet.GenericWriter[Row]
	rows   []Row
	closed bool
}

// NewParquetRecorder creates path, and its parent directories, and tags every
// row with a new session id.
func NewParquetRecorder(path string) (*ParquetRecorder, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("history: failed to create parquet file: %w", err)
	}
	session := uuid.New()
	return &ParquetRecorder{
		log:     slog.With("component", "history.ParquetRecorder", "session", session.String()),
		session: session,
		f:       f,
		w:       parquet.NewGenericWriter[Row](f),
	}, nil
}

func (r *ParquetRecorder) Session() uuid.UUID { return r.session }

func (r *ParquetRecorder) Record(_ context.Context, snap types.Snapshot) error {
	if len(snap.Processes) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	session := r.session.String()
	r.rows = r.rows[:0]
	for _, p := range snap.Processes {
		r.rows = append(r.rows, toRow(session, snap, p))
	}
	if _, err := r.w.Write(r.rows); err != nil {
		return fmt.Errorf("history: failed to write parquet rows: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("history: failed to flush parquet row group: %w", err)
	}
	return nil
}

// Close writes the file footer and closes the file. It is idempotent.
func (r *ParquetRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.w.Close(); err != nil {
		_ = r.f.Close()
		return fmt.Errorf("history: failed to close parquet writer: %w", err)
	}
	r.log.Debug("parquet history closed", "file", r.f.Name())
	return r.f.Close()
}
