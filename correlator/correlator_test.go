package correlator

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/transport"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	connected atomic.Bool
	sendErr   error
	sent      chan string
}

func newFakeConn() *fakeConn {
	fc := &fakeConn{sent: make(chan string, 10)}
	fc.connected.Store(true)

	return fc
}

func (fc *fakeConn) ID() string        { return "conn-1" }
func (fc *fakeConn) IsConnected() bool { return fc.connected.Load() }

func (fc *fakeConn) Send(kind string, payload string) error {
	if fc.sendErr != nil {
		return fc.sendErr
	}
	if kind != transport.KindCommand {
		return fmt.Errorf("unexpected kind %q", kind)
	}
	fc.sent <- payload

	return nil
}

type issueResult struct {
	response string
	err      error
}

func newTestCorrelator(t *testing.T, conn Sender, timeout time.Duration) *Correlator {
	t.Helper()

	c, err := New(conn, WithResponseTimeout(timeout), WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)

	return c
}

// issueAsync issues command in the background and waits until it was sent.
func issueAsync(t *testing.T, c *Correlator, fc *fakeConn, command string) <-chan issueResult {
	t.Helper()

	resCh := make(chan issueResult, 1)
	go func() {
		resp, err := c.Issue(command)
		resCh <- issueResult{response: resp, err: err}
	}()

	select {
	case sent := <-fc.sent:
		require.Equal(t, command, sent)
	case <-time.After(time.Second):
		require.FailNow(t, "command not sent")
	}

	return resCh
}

func waitResult(t *testing.T, resCh <-chan issueResult) issueResult {
	t.Helper()

	select {
	case res := <-resCh:
		return res
	case <-time.After(3 * time.Second):
		require.FailNow(t, "issue did not settle")
	}

	return issueResult{}
}

func TestCorrelator_Response(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, time.Second)

	for _, resp := range []string{"T_S\r\n", "S_S_12.3400_g\r\n", ""} {
		resCh := issueAsync(t, c, fc, "T\r\n")
		require.True(c.HasPending())

		c.HandleMessage(transport.KindResponse, resp)
		res := waitResult(t, resCh)
		require.NoError(res.err)
		require.Equal(resp, res.response)
		require.False(c.HasPending())
	}

	m := c.Metrics()
	require.Equal(uint64(3), m.CommandSendCount.Load())
	require.Equal(uint64(3), m.ResponseMatchCount.Load())
	require.Equal(int64(0), m.InflightCount.Load())
}

func TestCorrelator_IgnoresNonResponseKinds(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, time.Second)

	resCh := issueAsync(t, c, fc, "S\r\n")
	c.HandleMessage(transport.KindCommand, "not a reply")
	require.True(c.HasPending())

	c.HandleMessage(transport.KindResponse, "S_S_1.0000_g\r\n")
	require.Equal("S_S_1.0000_g\r\n", waitResult(t, resCh).response)
}

func TestCorrelator_Timeout(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, 50*time.Millisecond)

	start := time.Now()
	resCh := issueAsync(t, c, fc, "R\r\n")
	res := waitResult(t, resCh)
	require.ErrorIs(res.err, ErrTimeout)
	require.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
	require.False(c.HasPending())

	// the late response has no effect
	c.HandleMessage(transport.KindResponse, "R_A\r\n")
	require.Equal(uint64(1), c.Metrics().ResponseDropCount.Load())
	require.Equal(uint64(1), c.Metrics().TimeoutCount.Load())
	require.Equal(uint64(0), c.Metrics().ResponseMatchCount.Load())

	// and is never attributed to the next command
	resCh = issueAsync(t, c, fc, "T\r\n")
	c.HandleMessage(transport.KindResponse, "T_S\r\n")
	res = waitResult(t, resCh)
	require.NoError(res.err)
	require.Equal("T_S\r\n", res.response)
}

func TestCorrelator_DisconnectWhileOutstanding(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, 100*time.Millisecond)

	resCh := issueAsync(t, c, fc, "S\r\n")
	fc.connected.Store(false)
	c.HandleDisconnect()

	res := waitResult(t, resCh)
	require.ErrorIs(res.err, ErrNoConnection)
	require.False(c.HasPending())
	require.False(c.Connected())

	// the timer was canceled with the request
	time.Sleep(200 * time.Millisecond)
	require.Equal(uint64(0), c.Metrics().TimeoutCount.Load())
	require.Equal(uint64(1), c.Metrics().DisconnectErrCount.Load())

	// a second disconnect event is a no-op
	c.HandleDisconnect()
	require.Equal(uint64(1), c.Metrics().DisconnectErrCount.Load())
}

func TestCorrelator_IssueWhenDisconnected(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	fc.connected.Store(false)
	c := newTestCorrelator(t, fc, time.Second)

	_, err := c.Issue("T\r\n")
	require.ErrorIs(err, ErrNoConnection)
	require.False(c.HasPending())
	require.Empty(fc.sent)
	require.Equal(int64(0), c.Metrics().InflightCount.Load())
}

func TestCorrelator_StaysDisconnected(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, time.Second)
	c.HandleDisconnect()

	// the transport object still claims to be connected
	require.True(fc.IsConnected())
	_, err := c.Issue("T\r\n")
	require.ErrorIs(err, ErrNoConnection)
	require.Empty(fc.sent)
}

func TestCorrelator_Busy(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, time.Second)

	resCh := issueAsync(t, c, fc, "S\r\n")

	_, err := c.Issue("T\r\n")
	require.ErrorIs(err, ErrBusy)
	require.Empty(fc.sent)
	require.True(c.HasPending())
	require.Equal(uint64(1), c.Metrics().BusyCount.Load())

	// the outstanding command is untouched
	c.HandleMessage(transport.KindResponse, "S_S_2.0000_g\r\n")
	res := waitResult(t, resCh)
	require.NoError(res.err)
	require.Equal("S_S_2.0000_g\r\n", res.response)
}

func TestCorrelator_UnsolicitedResponseDropped(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, time.Second)

	c.HandleMessage(transport.KindResponse, "D_A\r\n")
	require.Equal(uint64(1), c.Metrics().ResponseDropCount.Load())
	require.False(c.HasPending())

	resCh := issueAsync(t, c, fc, "T\r\n")
	require.True(c.HasPending())
	c.HandleMessage(transport.KindResponse, "T_S\r\n")
	require.Equal("T_S\r\n", waitResult(t, resCh).response)
}

func TestCorrelator_SendFailure(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	fc.sendErr = transport.ErrConnClosed
	c := newTestCorrelator(t, fc, time.Second)

	_, err := c.Issue("T\r\n")
	require.ErrorIs(err, ErrNoConnection)
	require.ErrorIs(err, transport.ErrConnClosed)
	require.False(c.HasPending())
	require.Equal(uint64(0), c.Metrics().CommandSendCount.Load())
}

func TestCorrelator_FirstSettlementWins(t *testing.T) {
	require := require.New(t)

	fc := newFakeConn()
	c := newTestCorrelator(t, fc, 20*time.Millisecond)

	for i := 0; i < 20; i++ {
		resCh := issueAsync(t, c, fc, "S\r\n")
		handled := make(chan struct{})
		go func() {
			c.HandleMessage(transport.KindResponse, "S_S\r\n")
			close(handled)
		}()
		res := waitResult(t, resCh)
		<-handled
		if res.err != nil {
			require.ErrorIs(res.err, ErrTimeout)
		} else {
			require.Equal("S_S\r\n", res.response)
		}
		require.False(c.HasPending())
	}

	m := c.Metrics()
	require.Equal(uint64(20), m.TimeoutCount.Load()+m.ResponseMatchCount.Load())
	require.Equal(m.TimeoutCount.Load(), m.ResponseDropCount.Load())
	require.Equal(int64(0), m.InflightCount.Load())
}

func TestNew(t *testing.T) {
	require := require.New(t)

	_, err := New(nil)
	require.Error(err)

	_, err = New(newFakeConn(), WithResponseTimeout(0))
	require.Error(err)

	_, err = New(newFakeConn(), WithLogger(nil))
	require.Error(err)

	c, err := New(newFakeConn())
	require.NoError(err)
	require.Equal(DefaultResponseTimeout, c.ResponseTimeout())
	require.Equal("conn-1", c.ID())
	require.True(c.Connected())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoConnection, KindNoConnection},
		{fmt.Errorf("%w: %w", ErrNoConnection, transport.ErrConnClosed), KindNoConnection},
		{ErrTimeout, KindTimeout},
		{ErrBusy, KindBusy},
		{fmt.Errorf("display: %w", ErrInvalidArgument), KindInvalidArgument},
		{errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
