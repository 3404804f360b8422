package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/arloliu/go-scale/internal/pool"
	"github.com/arloliu/go-scale/internal/task"
	"github.com/arloliu/go-scale/logger"
	"github.com/google/uuid"
)

// Conn is one established transport connection.
type Conn struct {
	id      string
	netConn net.Conn
	cfg     *config
	logger  logger.Logger
	handler Handler

	reader *FrameReader
	writer *FrameWriter

	taskMgr       *task.Manager
	senderMsgChan chan []byte

	connected      atomic.Bool
	disconnectOnce sync.Once
	onClosed       func(*Conn) // owner bookkeeping, runs before OnDisconnect
}

func newConn(ctx context.Context, netConn net.Conn, cfg *config, handler Handler) *Conn {
	id := uuid.NewString()
	l := cfg.logger.With("conn_id", id)

	return &Conn{
		id:            id,
		netConn:       netConn,
		cfg:           cfg,
		logger:        l,
		handler:       handler,
		reader:        NewFrameReader(netConn, cfg.maxMessageSize),
		writer:        NewFrameWriter(netConn, cfg.maxMessageSize),
		taskMgr:       task.NewManager(ctx, l),
		senderMsgChan: make(chan []byte, cfg.senderQueueSize),
	}
}

// ID returns the transport-assigned connection identity.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() net.Addr { return c.netConn.RemoteAddr() }

// IsConnected reports whether the connection is still established.
func (c *Conn) IsConnected() bool { return c.connected.Load() }

// Send queues a message for transmission.
//
// It returns ErrConnClosed if the connection is not established and ErrSendTimeout
// if the outgoing queue stays full for the configured send timeout. A nil error means
// the message was queued; a later write failure closes the connection.
func (c *Conn) Send(kind string, payload string) error {
	if !c.IsConnected() {
		return ErrConnClosed
	}

	data, err := EncodeMessage(Message{Kind: kind, Payload: payload})
	if err != nil {
		return err
	}

	timer := pool.GetTimer(c.cfg.sendTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-c.taskMgr.Context().Done():
		return ErrConnClosed
	case <-timer.C:
		return ErrSendTimeout
	case c.senderMsgChan <- data:
		return nil
	}
}

// Close closes the connection. OnDisconnect is delivered by the receiver goroutine.
//
// Close does not wait for the connection goroutines, so it is safe to call from a
// Handler callback.
func (c *Conn) Close() error {
	c.connected.Store(false)
	c.taskMgr.Stop()

	err := c.netConn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// start runs the connection: sender first so OnConnect may send, then OnConnect,
// then the receiver which delivers messages and finally the disconnect.
func (c *Conn) start() error {
	c.connected.Store(true)

	if err := c.taskMgr.Start("senderTask", c.senderTask, nil); err != nil {
		c.connected.Store(false)
		_ = c.netConn.Close()

		return err
	}

	c.logger.Info("connected", "remote_address", c.RemoteAddr())
	c.handler.OnConnect(c)

	if err := c.taskMgr.Start("receiverTask", c.receiverTask, c.handleClosed); err != nil {
		c.handleClosed()
		return err
	}

	return nil
}

// wait waits for the connection goroutines, at most timeout.
func (c *Conn) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.taskMgr.Wait()
		close(done)
	}()

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		return true
	case <-timer.C:
		c.logger.Error("close timeout", "method", "wait", "timeout", timeout)
		return false
	}
}

func (c *Conn) senderTask() bool {
	select {
	case <-c.taskMgr.Context().Done():
		return false

	case data := <-c.senderMsgChan:
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout)); err != nil {
			c.logger.Debug("failed to set write deadline", "method", "senderTask", "error", err)
			_ = c.netConn.Close()

			return false
		}

		if err := c.writer.WriteFrame(data); err != nil {
			if !isClosedError(err) {
				c.logger.Error("failed to send message", "method", "senderTask", "error", err)
			}
			// closing the socket wakes the receiver which reports the disconnect
			_ = c.netConn.Close()

			return false
		}

		return true
	}
}

func (c *Conn) receiverTask() bool {
	data, err := c.reader.ReadFrame()
	if err != nil {
		if !isClosedError(err) {
			c.logger.Error("failed to read message", "method", "receiverTask", "error", err)
		}

		return false
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		c.logger.Warn("drop undecodable message", "method", "receiverTask", "error", err)
		return true
	}

	c.handler.OnMessage(c, msg)

	return true
}

// handleClosed runs when the receiver exits. It reports the disconnect exactly once.
func (c *Conn) handleClosed() {
	c.disconnectOnce.Do(func() {
		c.connected.Store(false)
		c.taskMgr.Stop()
		_ = c.netConn.Close()

		c.logger.Info("disconnected")

		if c.onClosed != nil {
			c.onClosed(c)
		}
		c.handler.OnDisconnect(c)
	})
}

func isClosedError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrFrameTruncated) ||
		errors.Is(err, syscall.ECONNRESET)
}
