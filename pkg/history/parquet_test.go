package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/procmetrics/pkg/types"
)

func TestParquetRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.parquet")
	rec, err := NewParquetRecorder(path)
	require.NoError(t, err)

	started := t0.Add(-time.Hour)
	require.NoError(t, rec.Record(t.Context(), snapAt(0,
		types.ProcessInfo{
			PID: 42, PPID: 1, Name: "nginx", CmdLine: "nginx -g daemon off;", Username: "www",
			State: "sleeping", StartedAt: started, CPUPercent: 12.5, ResidentBytes: 4096,
			Threads: 3, DiskReadRate: 100, Flags: types.PermissionDenied,
		},
		types.ProcessInfo{PID: 43, Name: "worker"},
	)))
	require.NoError(t, rec.Record(t.Context(), snapAt(1)), "empty snapshots are skipped")
	require.NoError(t, rec.Record(t.Context(), snapAt(2, types.ProcessInfo{PID: 42, Name: "nginx"})))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rows, err := parquet.ReadFile[Row](path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, rec.Session().String(), first.Session)
	assert.Equal(t, t0.UnixMilli(), first.AtUnixMs)
	assert.Equal(t, int64(42), first.PID)
	assert.Equal(t, "nginx -g daemon off;", first.CmdLine)
	assert.Equal(t, started.UnixMilli(), first.StartedAt)
	assert.InDelta(t, 12.5, first.CPUPercent, 1e-9)
	assert.Equal(t, int64(4096), first.ResidentBytes)
	assert.Equal(t, "permission-denied", first.Flags)

	assert.Zero(t, rows[1].StartedAt)
	assert.Equal(t, t0.Add(2*time.Second).UnixMilli(), rows[2].AtUnixMs)

	t.Run("closed", func(t *testing.T) {
		err := rec.Record(t.Context(), snapAt(3, types.ProcessInfo{PID: 1}))
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestNewParquetRecorder_NoPath(t *testing.T) {
	_, err := NewParquetRecorder("")
	assert.ErrorIs(t, err, ErrNoPath)
}
