package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaU64(t *testing.T) {
	t.Run("normal_increase", func(t *testing.T) {
		assert.Equal(t, uint64(10), DeltaU64(110, 100))
	})
	t.Run("no_change", func(t *testing.T) {
		assert.Equal(t, uint64(0), DeltaU64(100, 100))
	})
	t.Run("counter_reset", func(t *testing.T) {
		assert.Equal(t, uint64(0), DeltaU64(99, 100))
	})
	t.Run("large_values", func(t *testing.T) {
		const hi = ^uint64(0) - 5
		assert.Equal(t, uint64(5), DeltaU64(hi, hi-5))
	})
}

func TestSafeDiv(t *testing.T) {
	const eps = 1e-12

	t.Run("regular_positive", func(t *testing.T) {
		require.InDelta(t, 2.5, SafeDiv(5, 2), 1e-12)
	})
	t.Run("regular_negative", func(t *testing.T) {
		require.InDelta(t, -2.5, SafeDiv(-5, 2), 1e-12)
		require.InDelta(t, 2.5, SafeDiv(-5, -2), 1e-12)
	})
	t.Run("zero_denominator", func(t *testing.T) {
		assert.Equal(t, 0.0, SafeDiv(123, 0))
	})
	t.Run("tiny_denominator_below_eps", func(t *testing.T) {
		d := eps / 10
		assert.Equal(t, 0.0, SafeDiv(1, d))
		assert.Equal(t, 0.0, SafeDiv(1, -d))
	})
}

func TestClamp(t *testing.T) {
	t.Run("within_range", func(t *testing.T) {
		assert.Equal(t, 42.0, Clamp(42, 0, 400))
	})
	t.Run("bounds", func(t *testing.T) {
		assert.Equal(t, 0.0, Clamp(-1e9, 0, 400))
		assert.Equal(t, 400.0, Clamp(401, 0, 400))
		assert.Equal(t, 400.0, Clamp(math.MaxFloat64, 0, 400))
	})
	t.Run("non_finite_is_low_bound", func(t *testing.T) {
		assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 100))
		assert.Equal(t, 0.0, Clamp(math.Inf(1), 0, 100))
		assert.Equal(t, 0.0, Clamp(math.Inf(-1), 0, 100))
	})
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 1.5, Finite(1.5))
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(1)))
}
