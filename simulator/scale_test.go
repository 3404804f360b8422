package simulator

import (
	"testing"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScale() (*Scale, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewScale(WithScaleLogger(logger.NewNopMockLogger()), WithStabilizeTime(5*time.Second))
	s.now = clock.now

	return s, clock
}

func process(t *testing.T, s *Scale, raw string) string {
	t.Helper()

	reply, ok := s.ProcessCommand(raw)
	require.True(t, ok, "command %q has no reply", raw)

	return reply
}

func TestScale_Display(t *testing.T) {
	require := require.New(t)

	s, _ := newTestScale()
	require.Equal("D_A", process(t, s, "D_Hi\r\n"))
	require.Equal("Hi", s.State().Display)

	require.Equal("D_L", process(t, s, "D\r\n"))
	require.Equal("D_L", process(t, s, "D_a_b\r\n"))
	require.Equal("Hi", s.State().Display)
}

func TestScale_ReadWhileStabilizing(t *testing.T) {
	require := require.New(t)

	s, clock := newTestScale()
	require.Equal("S_S_0.0000_g", process(t, s, "S\r\n"))

	s.SetRaw(12.34)
	require.False(s.State().Stable)
	require.Equal("S_I", process(t, s, "S\r\n"))
	require.Equal("T_I", process(t, s, "T\r\n"))
	require.Regexp(`^S_D_1\d\.\d{4}_g$`, process(t, s, "SI\r\n"))

	require.ErrorIs(s.AddWeight(1), ErrUnstable)
	require.ErrorIs(s.RemoveWeight(1), ErrUnstable)
	require.ErrorIs(s.Randomize(), ErrUnstable)

	clock.advance(5 * time.Second)
	require.True(s.State().Stable)
	require.Equal("S_S_12.3400_g", process(t, s, "S\r\n"))
	require.Equal("S_S_12.3400_g", process(t, s, "SI\r\n"))
}

func TestScale_TareAndReset(t *testing.T) {
	require := require.New(t)

	s, clock := newTestScale()
	s.SetRaw(10)
	clock.advance(6 * time.Second)

	require.Equal("T_S_0.0000_g", process(t, s, "T\r\n"))
	require.Equal(10.0, s.State().Tare)

	require.NoError(s.AddWeight(1))
	clock.advance(6 * time.Second)
	require.Equal("S_S_1.0000_g", process(t, s, "S\r\n"))

	// taring again keeps the value relative to the raw weight
	require.Equal("T_S_0.0000_g", process(t, s, "T\r\n"))
	require.Equal(11.0, s.State().Tare)

	reply, ok := s.ProcessCommand("R\r\n")
	require.False(ok)
	require.Empty(reply)
	require.Zero(s.State().Tare)
	require.Equal("S_S_0.0000_g", process(t, s, "S\r\n"))
}

func TestScale_RemoveWeightNotNegative(t *testing.T) {
	require := require.New(t)

	s, clock := newTestScale()
	require.NoError(s.AddWeight(1))
	clock.advance(6 * time.Second)

	require.NoError(s.RemoveWeight(1))
	clock.advance(6 * time.Second)
	require.NoError(s.RemoveWeight(1))
	require.Zero(s.State().Raw)
	require.True(s.State().Stable)
}

func TestScale_Randomize(t *testing.T) {
	require := require.New(t)

	s, _ := newTestScale()
	require.NoError(s.Randomize())

	raw := s.State().Raw
	require.GreaterOrEqual(raw, 0.0)
	require.Less(raw, 100.0)
}

func TestScale_Options(t *testing.T) {
	require := require.New(t)

	s := NewScale(WithResolution(2), WithUnit("kg"), WithScaleLogger(logger.NewNopMockLogger()))
	require.Equal("S_S_0.00_kg", process(t, s, "S"))

	_, ok := s.ProcessCommand("")
	require.False(ok)
	_, ok = s.ProcessCommand("TA_1\r\n")
	require.False(ok)
}
