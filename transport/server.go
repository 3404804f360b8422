package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/arloliu/go-scale/internal/task"
	"github.com/arloliu/go-scale/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Server accepts device connections and reports their events to a Handler.
type Server struct {
	address string
	cfg     *config
	logger  logger.Logger
	handler Handler

	mu       sync.Mutex
	listener *net.TCPListener
	taskMgr  *task.Manager

	conns *xsync.MapOf[string, *Conn]
}

// NewServer creates a Server that will listen on address ("host:port").
func NewServer(address string, handler Handler, opts ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is nil")
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Server{
		address: address,
		cfg:     cfg,
		logger:  cfg.logger,
		handler: handler,
		conns:   xsync.NewMapOf[string, *Conn](),
	}, nil
}

// Listen binds the listening socket and starts accepting connections in the background.
// The server stops accepting when ctx is done or Close is called.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("transport: server already listening")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		s.logger.Error("failed to listen", "address", s.address, "error", err)
		return err
	}

	tcpListener, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return errors.New("transport: listener is not a TCP listener")
	}

	s.listener = tcpListener
	s.taskMgr = task.NewManager(ctx, s.logger)

	s.logger.Info("listening", "address", tcpListener.Addr())

	return s.taskMgr.Start("acceptTask", s.acceptTask, nil)
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Conns returns the currently established connections.
func (s *Server) Conns() []*Conn {
	conns := make([]*Conn, 0, s.conns.Size())
	s.conns.Range(func(_ string, c *Conn) bool {
		conns = append(conns, c)
		return true
	})

	return conns
}

// Conn returns the established connection with the given id.
func (s *Server) Conn(id string) (*Conn, bool) {
	return s.conns.Load(id)
}

// Close stops accepting, closes every connection and waits for their disconnect
// events to be delivered.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.listener
	taskMgr := s.taskMgr
	s.listener = nil
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	taskMgr.Stop()
	err := ln.Close()
	taskMgr.Wait()

	conns := s.Conns()
	for _, c := range conns {
		_ = c.Close()
	}
	for _, c := range conns {
		c.wait(s.cfg.closeTimeout)
	}

	s.logger.Info("server closed", "address", s.address)

	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (s *Server) acceptTask() bool {
	if err := s.listener.SetDeadline(time.Now().Add(s.cfg.acceptTimeout)); err != nil {
		return false
	}

	netConn, err := s.listener.Accept()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true // re-check the stop condition and accept again
		}

		if !errors.Is(err, net.ErrClosed) {
			s.logger.Error("failed to accept connection", "method", "acceptTask", "error", err)
		}

		return false
	}

	c := newConn(s.taskMgr.Context(), netConn, s.cfg, s.handler)
	c.onClosed = func(c *Conn) { s.conns.Delete(c.ID()) }
	s.conns.Store(c.ID(), c)

	if err := c.start(); err != nil {
		s.logger.Error("failed to start connection", "method", "acceptTask", "error", err)
	}

	return true
}
