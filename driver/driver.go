// Package driver accepts scale connections, keeps a pool of their sessions and
// dispatches operator operations to every connected scale.
package driver

import (
	"context"
	"net"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/scale"
	"github.com/arloliu/go-scale/transport"
)

// Driver binds transport connection events to scale sessions.
type Driver struct {
	cfg    *config
	logger logger.Logger
	server *transport.Server
	pool   *Pool
}

var _ transport.Handler = (*Driver)(nil)

// DeviceInfo describes a connected scale.
type DeviceInfo struct {
	ID              string `json:"id"`
	RemoteAddress   string `json:"remote_address,omitempty"`
	Connected       bool   `json:"connected"`
	Pending         bool   `json:"pending"`
	CommandCount    uint64 `json:"command_count"`
	TimeoutCount    uint64 `json:"timeout_count"`
	DisconnectCount uint64 `json:"disconnect_error_count"`
}

// Status is the summary shown on the operator surfaces.
type Status struct {
	Address string `json:"address"`
	Devices int    `json:"devices"`
}

// New creates a Driver listening on address ("host:port").
func New(address string, opts ...Option) (*Driver, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:    cfg,
		logger: cfg.logger,
		pool:   NewPool(cfg.logger, cfg.report),
	}

	transportOpts := append([]transport.Option{transport.WithLogger(cfg.logger)}, cfg.transportOptions...)
	d.server, err = transport.NewServer(address, d, transportOpts...)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Start starts accepting scale connections.
func (d *Driver) Start(ctx context.Context) error {
	return d.server.Listen(ctx)
}

// Stop closes every scale connection and stops accepting new ones.
func (d *Driver) Stop() error {
	return d.server.Close()
}

// Addr returns the listening address, or nil before Start.
func (d *Driver) Addr() net.Addr {
	return d.server.Addr()
}

// Pool returns the pool of connected scales.
func (d *Driver) Pool() *Pool {
	return d.pool
}

// Broadcast runs op on every connected scale. See Pool.Broadcast.
func (d *Driver) Broadcast(name string, op Op) []Result {
	return d.pool.Broadcast(name, op)
}

// Status returns the listening address and the number of connected scales.
func (d *Driver) Status() Status {
	st := Status{Devices: d.pool.Len()}
	if addr := d.Addr(); addr != nil {
		st.Address = addr.String()
	}

	return st
}

// Devices describes the connected scales in connection order.
func (d *Driver) Devices() []DeviceInfo {
	sessions := d.pool.Sessions()
	infos := make([]DeviceInfo, 0, len(sessions))

	for _, s := range sessions {
		c := s.Correlator()
		m := c.Metrics()
		info := DeviceInfo{
			ID:              s.ID(),
			Connected:       s.Connected(),
			Pending:         c.HasPending(),
			CommandCount:    m.CommandSendCount.Load(),
			TimeoutCount:    m.TimeoutCount.Load(),
			DisconnectCount: m.DisconnectErrCount.Load(),
		}
		if conn, ok := d.server.Conn(s.ID()); ok {
			info.RemoteAddress = conn.RemoteAddr().String()
		}
		infos = append(infos, info)
	}

	return infos
}

// OnConnect creates and registers the session of a new scale, then greets it.
func (d *Driver) OnConnect(conn *transport.Conn) {
	c, err := correlator.New(conn,
		correlator.WithResponseTimeout(d.cfg.responseTimeout),
		correlator.WithLogger(d.logger),
	)
	if err != nil {
		d.logger.Error("failed to create correlator", "method", "OnConnect", "conn_id", conn.ID(), "error", err)
		_ = conn.Close()

		return
	}

	s := scale.NewSession(c, d.logger)
	d.pool.Add(s)
	d.logger.Info("device connected", "device", s.ID(), "remote_address", conn.RemoteAddr(), "devices", d.pool.Len())

	if d.cfg.greeting != "" {
		go d.pool.Exec(s.ID(), OpDisplay, DisplayOp(d.cfg.greeting))
	}
}

// OnMessage hands a received message to the correlator of its scale.
func (d *Driver) OnMessage(conn *transport.Conn, msg transport.Message) {
	s, ok := d.pool.Get(conn.ID())
	if !ok {
		d.logger.Debug("drop message of unknown device", "method", "OnMessage", "conn_id", conn.ID(), "payload", msg.Payload)
		return
	}

	s.Correlator().HandleMessage(msg.Kind, msg.Payload)
}

// OnDisconnect removes the session of the scale from the pool, then fails its
// outstanding command.
func (d *Driver) OnDisconnect(conn *transport.Conn) {
	s, ok := d.pool.Remove(conn.ID())
	if !ok {
		return
	}

	s.Correlator().HandleDisconnect()
	d.logger.Info("device disconnected", "device", s.ID(), "devices", d.pool.Len())
}
