package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePIDs(t *testing.T) {
	t.Run("singles_and_ranges", func(t *testing.T) {
		got, err := ParsePIDs([]string{"12", "3..5", " 4 ", "", "1"})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 4, 5, 12}, got)
	})

	t.Run("single_element_range", func(t *testing.T) {
		got, err := ParsePIDs([]string{"7..7"})
		require.NoError(t, err)
		assert.Equal(t, []int{7}, got)
	})

	t.Run("none", func(t *testing.T) {
		got, err := ParsePIDs(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	for _, bad := range []string{"abc", "0", "-3", "5..2", "1..", "..4", "1..x", "1..100000"} {
		t.Run("invalid_"+bad, func(t *testing.T) {
			_, err := ParsePIDs([]string{bad})
			assert.Error(t, err)
		})
	}
}

func TestPIDFilter(t *testing.T) {
	all := pidFilter(nil)
	assert.True(t, all(1))
	assert.True(t, all(99999))

	some := pidFilter([]int{3, 10, 42})
	assert.True(t, some(10))
	assert.False(t, some(11))
}
