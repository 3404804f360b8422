package correlator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/transport"
)

// Sender is the part of a transport connection used by a Correlator.
// *transport.Conn implements it.
type Sender interface {
	ID() string
	IsConnected() bool
	Send(kind string, payload string) error
}

var _ Sender = (*transport.Conn)(nil)

type outcome struct {
	response string
	err      error
}

// pendingRequest is the single outstanding command of a Correlator.
type pendingRequest struct {
	command string
	created time.Time
	timer   *time.Timer
	done    chan outcome // buffered, receives exactly one outcome
}

// Correlator issues commands on one connection and waits for their responses.
//
// All methods are safe for concurrent use. HandleMessage and HandleDisconnect are
// meant to be called from the transport event handler of the connection.
type Correlator struct {
	conn    Sender
	cfg     *config
	logger  logger.Logger
	metrics Metrics

	mu           sync.Mutex
	pending      *pendingRequest
	disconnected bool
}

// New creates a Correlator for conn.
func New(conn Sender, opts ...Option) (*Correlator, error) {
	if conn == nil {
		return nil, errors.New("correlator: connection is nil")
	}

	cfg := &config{
		responseTimeout: DefaultResponseTimeout,
		logger:          logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return &Correlator{
		conn:   conn,
		cfg:    cfg,
		logger: cfg.logger.With("conn_id", conn.ID()),
	}, nil
}

// ID returns the identity of the underlying connection.
func (c *Correlator) ID() string { return c.conn.ID() }

// ResponseTimeout returns the configured response timeout.
func (c *Correlator) ResponseTimeout() time.Duration { return c.cfg.responseTimeout }

// Metrics returns the counters of the correlator.
func (c *Correlator) Metrics() *Metrics { return &c.metrics }

// Connected reports whether commands can currently be issued.
func (c *Correlator) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.disconnected && c.conn.IsConnected()
}

// HasPending reports whether a command is outstanding.
func (c *Correlator) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending != nil
}

// Issue sends command and waits for its response.
//
// It fails synchronously with ErrNoConnection when the connection is not established
// and with ErrBusy when another command is outstanding; in both cases nothing is sent.
// Otherwise it returns the raw text of the next response, ErrTimeout when the response
// timeout elapses first, or ErrNoConnection when the connection is lost first.
func (c *Correlator) Issue(command string) (string, error) {
	c.mu.Lock()
	if c.disconnected || !c.conn.IsConnected() {
		c.mu.Unlock()
		c.logger.Warn("command rejected, no connection", "method", "Issue", "payload", command)

		return "", ErrNoConnection
	}

	if c.pending != nil {
		c.mu.Unlock()
		c.metrics.BusyCount.Add(1)
		c.logger.Warn("command rejected, another command is outstanding", "method", "Issue", "payload", command)

		return "", ErrBusy
	}

	// arm before sending, a response can only be matched once pending is set
	p := &pendingRequest{
		command: command,
		created: time.Now(),
		done:    make(chan outcome, 1),
	}
	p.timer = time.AfterFunc(c.cfg.responseTimeout, func() {
		if c.settle(p, outcome{err: ErrTimeout}) {
			c.logger.Warn("response timeout", "method", "Issue", "payload", command, "timeout", c.cfg.responseTimeout)
		}
	})
	c.pending = p
	c.metrics.InflightCount.Add(1)
	c.mu.Unlock()

	c.logger.Info("send command", "direction", "out", "payload", command)

	if err := c.conn.Send(transport.KindCommand, command); err != nil {
		if c.settle(p, outcome{err: fmt.Errorf("%w: %w", ErrNoConnection, err)}) {
			c.logger.Warn("failed to send command", "method", "Issue", "payload", command, "error", err)
		}
	} else {
		c.metrics.CommandSendCount.Add(1)
	}

	res := <-p.done

	return res.response, res.err
}

// HandleMessage delivers a message received on the connection. A response settles the
// outstanding command; a response with nothing outstanding is dropped. Other kinds
// are ignored.
func (c *Correlator) HandleMessage(kind string, payload string) {
	if kind != transport.KindResponse {
		c.logger.Debug("ignore message", "method", "HandleMessage", "kind", kind, "payload", payload)
		return
	}

	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()

	if p == nil || !c.settle(p, outcome{response: payload}) {
		c.metrics.ResponseDropCount.Add(1)
		c.logger.Debug("drop response, no outstanding command", "direction", "in", "payload", payload)

		return
	}

	c.logger.Info("receive response", "direction", "in", "payload", payload, "elapsed", time.Since(p.created))
}

// HandleDisconnect marks the correlator disconnected and fails the outstanding command
// with ErrNoConnection. Later Issue calls fail with ErrNoConnection.
func (c *Correlator) HandleDisconnect() {
	c.mu.Lock()
	c.disconnected = true
	p := c.pending
	c.mu.Unlock()

	if p != nil && c.settle(p, outcome{err: ErrNoConnection}) {
		c.logger.Warn("connection lost while command outstanding", "method", "HandleDisconnect", "payload", p.command)
	}
}

// settle completes p with res if p is still the outstanding command. Only the first
// settle of a request succeeds.
func (c *Correlator) settle(p *pendingRequest, res outcome) bool {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	p.timer.Stop()
	c.mu.Unlock()

	c.metrics.InflightCount.Add(-1)
	switch {
	case res.err == nil:
		c.metrics.ResponseMatchCount.Add(1)
	case errors.Is(res.err, ErrTimeout):
		c.metrics.TimeoutCount.Add(1)
	default:
		c.metrics.DisconnectErrCount.Add(1)
	}
	p.done <- res

	return true
}
