package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/procmetrics/pkg/types"
)

func TestPIDCache_Acquire(t *testing.T) {
	c := newPIDCache()

	e1, fresh := c.acquire(42, 100, 1)
	require.True(t, fresh)
	e1.cpuNs = 7

	e2, fresh := c.acquire(42, 100, 2)
	assert.False(t, fresh)
	assert.Same(t, e1, e2)
	assert.Equal(t, uint64(2), e2.cycle)

	t.Run("reuse_resets", func(t *testing.T) {
		e3, fresh := c.acquire(42, 999, 3)
		assert.True(t, fresh)
		assert.NotSame(t, e1, e3)
		assert.Zero(t, e3.cpuNs)
		assert.Equal(t, 1, c.len())
	})
}

func TestPIDCache_Evict(t *testing.T) {
	c := newPIDCache()
	for pid := 1; pid <= 5; pid++ {
		c.acquire(pid, 0, 1)
	}
	c.acquire(2, 0, 2)
	c.acquire(4, 0, 2)

	assert.Equal(t, 3, c.evict(2))
	assert.Equal(t, 2, c.len())
	for _, pid := range []int{1, 3, 5} {
		_, ok := c.peek(pid)
		assert.False(t, ok, "pid %d", pid)
	}
	assert.Zero(t, c.evict(2))
}

func TestTop(t *testing.T) {
	ps := func() []types.ProcessInfo {
		return []types.ProcessInfo{
			{PID: 3, CPUPercent: 10},
			{PID: 1, CPUPercent: 50},
			{PID: 4, CPUPercent: 5},
			{PID: 2, CPUPercent: 10},
		}
	}

	t.Run("busiest_first_ties_by_pid", func(t *testing.T) {
		got := Top(ps(), 3)
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 2, 3}, pids(got))
	})

	t.Run("no_limit_keeps_order", func(t *testing.T) {
		assert.Equal(t, []int{3, 1, 4, 2}, pids(Top(ps(), 0)))
		assert.Equal(t, []int{3, 1, 4, 2}, pids(Top(ps(), 4)))
	})
}

func pids(ps []types.ProcessInfo) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.PID
	}
	return out
}
