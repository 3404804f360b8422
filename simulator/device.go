package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/scale"
	"github.com/arloliu/go-scale/transport"
)

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithMaxResponseDelay sets the upper bound of the random delay before each reply.
// Zero replies immediately.
func WithMaxResponseDelay(d time.Duration) DeviceOption {
	return func(dev *Device) { dev.maxDelay = d }
}

// WithDeviceLogger sets the logger of the device.
func WithDeviceLogger(l logger.Logger) DeviceOption {
	return func(dev *Device) { dev.logger = l }
}

// WithTransportOptions sets options of the underlying transport client.
func WithTransportOptions(opts ...transport.Option) DeviceOption {
	return func(dev *Device) { dev.transportOpts = append(dev.transportOpts, opts...) }
}

// Device connects a Scale to a driver and answers the commands it receives.
type Device struct {
	scale         *Scale
	client        *transport.Client
	maxDelay      time.Duration
	logger        logger.Logger
	transportOpts []transport.Option

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDevice creates a Device for the driver at address.
func NewDevice(address string, s *Scale, opts ...DeviceOption) (*Device, error) {
	dev := &Device{
		scale:    s,
		maxDelay: 500 * time.Millisecond,
		logger:   logger.GetLogger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}

	for _, opt := range opts {
		opt(dev)
	}

	transportOpts := append([]transport.Option{transport.WithLogger(dev.logger)}, dev.transportOpts...)

	client, err := transport.NewClient(address, transport.HandlerFuncs{
		Connect:    dev.onConnect,
		Message:    dev.onMessage,
		Disconnect: dev.onDisconnect,
	}, transportOpts...)
	if err != nil {
		return nil, err
	}
	dev.client = client

	return dev, nil
}

// Scale returns the simulated scale.
func (dev *Device) Scale() *Scale { return dev.scale }

// Open starts connecting to the driver. The device reconnects until closed.
func (dev *Device) Open(ctx context.Context) error {
	return dev.client.Open(ctx)
}

// Close disconnects from the driver.
func (dev *Device) Close() error {
	return dev.client.Close()
}

// Connected reports whether the device is connected to the driver.
func (dev *Device) Connected() bool {
	return dev.client.State().IsConnected()
}

// ID returns the identity of the current connection, or an empty string.
func (dev *Device) ID() string {
	if conn := dev.client.Conn(); conn != nil {
		return conn.ID()
	}

	return ""
}

// WaitConnected waits until the device is connected or ctx is done.
func (dev *Device) WaitConnected(ctx context.Context) error {
	return dev.client.WaitState(ctx, transport.ConnectedState)
}

func (dev *Device) onConnect(conn *transport.Conn) {
	dev.logger.Info("connection to driver established", "conn_id", conn.ID())
}

func (dev *Device) onDisconnect(conn *transport.Conn) {
	dev.logger.Warn("connection to driver lost", "conn_id", conn.ID())
}

func (dev *Device) onMessage(conn *transport.Conn, msg transport.Message) {
	if msg.Kind != transport.KindCommand {
		return
	}

	dev.logger.Info("receive command", "direction", "in", "payload", msg.Payload)

	reply, ok := dev.scale.ProcessCommand(msg.Payload)
	if !ok {
		return
	}

	send := func() {
		dev.logger.Info("send reply", "direction", "out", "payload", reply)
		if err := conn.Send(transport.KindResponse, reply+scale.Terminator); err != nil {
			dev.logger.Warn("failed to send reply", "error", err)
		}
	}

	delay := dev.delay()
	if delay == 0 {
		send()
		return
	}
	time.AfterFunc(delay, send)
}

func (dev *Device) delay() time.Duration {
	if dev.maxDelay <= 0 {
		return 0
	}

	dev.rngMu.Lock()
	defer dev.rngMu.Unlock()

	return time.Duration(dev.rng.Int63n(int64(dev.maxDelay)))
}
