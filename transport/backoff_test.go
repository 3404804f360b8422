package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	require := require.New(t)

	b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Max: 400 * time.Millisecond, Multiplier: 2})

	require.Equal(100*time.Millisecond, b.Next())
	require.Equal(200*time.Millisecond, b.Next())
	require.Equal(400*time.Millisecond, b.Next())
	require.Equal(400*time.Millisecond, b.Next())
	require.Equal(4, b.Attempts())

	b.Reset()
	require.Equal(0, b.Attempts())
	require.Equal(100*time.Millisecond, b.Next())
}

func TestBackoff_Jitter(t *testing.T) {
	require := require.New(t)

	b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0.5})
	for i := 0; i < 3; i++ {
		base := 100 * time.Millisecond << i
		d := b.Next()
		require.GreaterOrEqual(d, base)
		require.LessOrEqual(d, base+base/2)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	require.Equal(t, DefaultBackoffConfig().Initial, b.cfg.Initial)
	require.Equal(t, DefaultBackoffConfig().Max, b.cfg.Max)
}
