package proctor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountdownExpiresOnce(t *testing.T) {
	fired := 0
	c := NewCountdown(3, func() { fired++ })

	require.False(t, c.Tick())
	require.Equal(t, 3, c.Remaining())

	c.Start()
	require.False(t, c.Tick())
	require.False(t, c.Tick())
	require.True(t, c.Tick())
	require.Equal(t, 0, c.Remaining())
	require.False(t, c.Active())
	require.Equal(t, 1, fired)

	c.Start()
	require.False(t, c.Active())
	require.False(t, c.Tick())
	require.Equal(t, 1, fired)
}

func TestCountdownStopAndReset(t *testing.T) {
	c := NewCountdown(GraceSeconds, nil)
	c.Start()
	c.Tick()
	c.Tick()
	c.Stop()
	c.Tick()
	require.Equal(t, GraceSeconds-2, c.Remaining())

	c.Start()
	c.Reset()
	require.False(t, c.Active())
	require.Equal(t, GraceSeconds, c.Remaining())
	require.Equal(t, GraceSeconds, c.Initial())
}
