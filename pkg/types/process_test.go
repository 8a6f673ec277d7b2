package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_Text(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		for _, f := range []Flags{0, CPURestricted, NetworkUnavailable | PermissionDenied, CPURestricted | NetworkUnavailable | PermissionDenied} {
			b, err := f.MarshalText()
			require.NoError(t, err)
			var got Flags
			require.NoError(t, got.UnmarshalText(b))
			assert.Equal(t, f, got, string(b))
		}
	})
	t.Run("unknown", func(t *testing.T) {
		var f Flags
		assert.Error(t, f.UnmarshalText([]byte("cpu-restricted|bogus")))
	})
}
