package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/arloliu/go-scale/internal/pool"
	"github.com/arloliu/go-scale/internal/task"
	"github.com/arloliu/go-scale/logger"
)

// Client connects to a Server and keeps reconnecting with backoff until closed.
type Client struct {
	address string
	cfg     *config
	logger  logger.Logger
	handler Handler
	backoff *Backoff
	state   *connStateMgr

	mu      sync.Mutex
	conn    *Conn
	taskMgr *task.Manager
}

// NewClient creates a Client for the server at address ("host:port").
func NewClient(address string, handler Handler, opts ...Option) (*Client, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is nil")
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		address: address,
		cfg:     cfg,
		logger:  cfg.logger.With("address", address),
		handler: handler,
		backoff: NewBackoff(cfg.backoff),
		state:   newConnStateMgr(),
	}, nil
}

// Open starts the connect loop in the background. It does not wait for the
// connection; use WaitState for that.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.taskMgr != nil {
		return errors.New("transport: client already opened")
	}

	c.taskMgr = task.NewManager(ctx, c.logger)

	return c.taskMgr.Start("connectTask", c.connectTask, nil)
}

// Conn returns the current connection, or nil when not connected.
func (c *Client) Conn() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return c.state.State()
}

// WaitState waits until the client reaches state or ctx is done.
func (c *Client) WaitState(ctx context.Context, state ConnState) error {
	return c.state.WaitState(ctx, state)
}

// Send sends a message on the current connection.
func (c *Client) Send(kind string, payload string) error {
	conn := c.Conn()
	if conn == nil {
		return ErrConnClosed
	}

	return conn.Send(kind, payload)
}

// Close stops reconnecting and closes the current connection.
func (c *Client) Close() error {
	c.mu.Lock()
	taskMgr := c.taskMgr
	conn := c.conn
	c.mu.Unlock()

	if taskMgr == nil {
		return nil
	}

	taskMgr.Stop()
	if conn != nil {
		_ = conn.Close()
	}
	taskMgr.Wait()

	return nil
}

func (c *Client) setConn(conn *Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// connectTask runs one connect/serve/backoff cycle.
func (c *Client) connectTask() bool {
	ctx := c.taskMgr.Context()

	dialer := net.Dialer{Timeout: c.cfg.dialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}

		delay := c.backoff.Next()
		c.logger.Warn("failed to connect", "error", err, "attempt", c.backoff.Attempts(), "retry_in", delay)

		return pool.Sleep(ctx, delay) == nil
	}

	c.backoff.Reset()

	closed := make(chan struct{})
	conn := newConn(ctx, netConn, c.cfg, c.handler)
	conn.onClosed = func(*Conn) {
		c.setConn(nil)
		c.state.set(NotConnectedState)
		close(closed)
	}

	c.setConn(conn)
	c.state.set(ConnectedState)

	if err := conn.start(); err != nil {
		c.logger.Error("failed to start connection", "method", "connectTask", "error", err)
	}

	select {
	case <-closed:
	case <-ctx.Done():
		_ = conn.Close()
	}
	conn.wait(c.cfg.closeTimeout)

	if ctx.Err() != nil {
		return false
	}

	return pool.Sleep(ctx, c.backoff.Next()) == nil
}
