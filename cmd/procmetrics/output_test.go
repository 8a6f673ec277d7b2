package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/procmetrics/pkg/history"
	"github.com/ja7ad/procmetrics/pkg/types"
)

func testSnapshot() types.Snapshot {
	return types.Snapshot{
		At: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Processes: []types.ProcessInfo{
			{PID: 1, Name: "init", Username: "root", CPUPercent: 0.5, ResidentBytes: 2048},
			{PID: 42, Name: "nginx", Username: "www", CPUPercent: 12.25, DiskReadRate: 1536,
				Flags: types.NetworkUnavailable},
		},
	}
}

func TestFilterSnapshot(t *testing.T) {
	got := filterSnapshot(testSnapshot(), pidFilter([]int{42}))
	require.Len(t, got.Processes, 1)
	assert.Equal(t, 42, got.Processes[0].PID)
	assert.Equal(t, testSnapshot().At, got.At)
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable(&buf)
	require.NoError(t, tbl.write(testSnapshot()))

	out := buf.String()
	assert.Contains(t, out, "2 processes")
	assert.Contains(t, out, "nginx")
	assert.Contains(t, out, "1.50 KB/s")
	assert.Contains(t, out, "network-unavailable")

	buf.Reset()
	require.NoError(t, tbl.summary([]history.Totals{{PID: 42, Name: "nginx", Samples: 3, AvgCPUPercent: 10}}, 3, time.Second))
	assert.Contains(t, buf.String(), "over 3 samples of ~1s")
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	s, err := newCSVSink(&buf)
	require.NoError(t, err)
	require.NoError(t, s.write(testSnapshot()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "42", records[2][1])
	assert.Equal(t, "12.250", records[2][7])
	assert.Equal(t, "network-unavailable", records[2][len(csvHeader)-1])
}

func TestJSONSink(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		s, err := newJSONSink(&buf)
		require.NoError(t, err)
		require.NoError(t, s.close())

		var got []types.Snapshot
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Empty(t, got)
	})

	t.Run("two_snapshots", func(t *testing.T) {
		var buf bytes.Buffer
		s, err := newJSONSink(&buf)
		require.NoError(t, err)
		require.NoError(t, s.write(testSnapshot()))
		require.NoError(t, s.write(testSnapshot()))
		require.NoError(t, s.close())

		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		procs := got[1]["processes"].([]any)
		assert.Equal(t, "network-unavailable", procs[1].(map[string]any)["flags"])
	})
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abcd…", truncateText("abcdefgh", 5))
}
