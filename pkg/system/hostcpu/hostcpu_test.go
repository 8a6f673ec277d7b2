package hostcpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCores = `cpu  300 10 100 1000 5 0 0 0 0 0
cpu0 100 5 50 500 2 0 0 0 0 0
cpu1 200 5 50 500 3 0 0 0 0 0
intr 12345
ctxt 999
`

func TestParseCoreTicks(t *testing.T) {
	t.Run("per_core", func(t *testing.T) {
		total, cores, err := ParseCoreTicks(strings.NewReader(twoCores))
		require.NoError(t, err)
		assert.Equal(t, 2, cores)
		// (100+5+50+500) + (200+5+50+500); iowait and the rest are excluded
		assert.Equal(t, uint64(1410), total)
	})
	t.Run("aggregate_only", func(t *testing.T) {
		total, cores, err := ParseCoreTicks(strings.NewReader("cpu  300 10 100 1000 5 0 0 0 0 0\n"))
		require.NoError(t, err)
		assert.Zero(t, cores)
		assert.Equal(t, uint64(1410), total)
	})
	t.Run("no_cpu_lines", func(t *testing.T) {
		_, _, err := ParseCoreTicks(strings.NewReader("intr 1\nctxt 2\n"))
		assert.ErrorIs(t, err, ErrNoCores)
	})
	t.Run("short_line", func(t *testing.T) {
		_, _, err := ParseCoreTicks(strings.NewReader("cpu0 1 2\n"))
		assert.Error(t, err)
	})
	t.Run("garbage_number", func(t *testing.T) {
		_, _, err := ParseCoreTicks(strings.NewReader("cpu0 1 2 x 4\n"))
		assert.Error(t, err)
	})
}

func TestSampler_Observe(t *testing.T) {
	s := NewSampler(t.TempDir(), 100, 8)

	t.Run("first_call_not_ok", func(t *testing.T) {
		_, ok := s.observe(1000, 2)
		assert.False(t, ok)
	})
	t.Run("delta", func(t *testing.T) {
		// 400 ticks over 2 cores at 100 Hz = 2s per core
		d, ok := s.observe(1400, 2)
		require.True(t, ok)
		assert.InDelta(t, 2.0, d, 1e-12)
		assert.Equal(t, 2, s.Cores())
	})
	t.Run("zero_delta_not_ok", func(t *testing.T) {
		_, ok := s.observe(1400, 2)
		assert.False(t, ok)
	})
	t.Run("regression_not_ok_and_rebased", func(t *testing.T) {
		_, ok := s.observe(500, 2)
		assert.False(t, ok)
		// previous state was updated to 500
		d, ok := s.observe(700, 2)
		require.True(t, ok)
		assert.InDelta(t, 1.0, d, 1e-12)
	})
	t.Run("zero_cores_uses_default", func(t *testing.T) {
		d, ok := s.observe(700+1600, 0)
		require.True(t, ok)
		assert.Equal(t, 8, s.Cores())
		assert.InDelta(t, 2.0, d, 1e-12)
	})
}

func TestSampler_DeltaSeconds_File(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stat")
	write := func(c0, c1 uint64) {
		body := fmt.Sprintf("cpu  0 0 0 0\ncpu0 %d 0 0 0\ncpu1 %d 0 0 0\n", c0, c1)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	s := NewSampler(root, 100, 1)
	write(100, 100)
	_, ok := s.DeltaSeconds()
	assert.False(t, ok)

	write(200, 200)
	d, ok := s.DeltaSeconds()
	require.True(t, ok)
	assert.InDelta(t, 1.0, d, 1e-12)
	assert.Equal(t, 2, s.Cores())
	assert.Equal(t, 100, s.TicksPerSecond())

	require.NoError(t, os.Remove(path))
	_, ok = s.DeltaSeconds()
	assert.False(t, ok)
}

func TestSampler_LiveProc(t *testing.T) {
	if _, err := os.Stat("/proc/stat"); err != nil {
		t.Skipf("/proc/stat not available: %v", err)
	}
	s := NewSampler("/proc", 100, 0)
	_, ok := s.DeltaSeconds()
	assert.False(t, ok)
	assert.GreaterOrEqual(t, s.Cores(), 1)
}

func TestDefaultCores(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultCores(), 1)
}
