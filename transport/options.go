package transport

import (
	"errors"
	"time"

	"github.com/arloliu/go-scale/logger"
)

// config holds the tunables shared by Server and Client.
type config struct {
	// sendTimeout bounds how long Send waits for room in the outgoing queue.
	// Defaults to 1 second.
	sendTimeout time.Duration

	// writeTimeout bounds a single frame write on the socket.
	// Defaults to 5 seconds.
	writeTimeout time.Duration

	// acceptTimeout is the accept iteration of a Server, after which the stop
	// condition is checked again. Defaults to 500 milliseconds.
	acceptTimeout time.Duration

	// dialTimeout bounds each connect attempt of a Client. Defaults to 3 seconds.
	dialTimeout time.Duration

	// closeTimeout bounds the wait for connection goroutines on Close.
	// Defaults to 3 seconds.
	closeTimeout time.Duration

	// senderQueueSize is the size of the per-connection outgoing queue. Defaults to 10.
	senderQueueSize int

	// maxMessageSize is the largest accepted frame payload. Defaults to 64 KB.
	maxMessageSize uint32

	// backoff configures the reconnect delays of a Client.
	backoff BackoffConfig

	logger logger.Logger
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		sendTimeout:     time.Second,
		writeTimeout:    5 * time.Second,
		acceptTimeout:   500 * time.Millisecond,
		dialTimeout:     3 * time.Second,
		closeTimeout:    3 * time.Second,
		senderQueueSize: 10,
		maxMessageSize:  DefaultMaxMessageSize,
		backoff:         DefaultBackoffConfig(),
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option configures a Server or a Client.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithSendTimeout sets how long Send waits for room in the outgoing queue.
func WithSendTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("send timeout should be positive")
		}
		cfg.sendTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the deadline of a single frame write.
func WithWriteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("write timeout should be positive")
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithAcceptTimeout sets the accept iteration of a Server.
func WithAcceptTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < 10*time.Millisecond || d > 2*time.Second {
			return errors.New("accept timeout should be in range [10ms, 2s]")
		}
		cfg.acceptTimeout = d

		return nil
	})
}

// WithDialTimeout sets the timeout of each Client connect attempt.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("dial timeout should be positive")
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithCloseTimeout sets how long Close waits for connection goroutines.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("close timeout should be positive")
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithSenderQueueSize sets the size of the per-connection outgoing queue.
func WithSenderQueueSize(size int) Option {
	return optFunc(func(cfg *config) error {
		if size < 1 {
			return errors.New("sender queue size should be at least 1")
		}
		cfg.senderQueueSize = size

		return nil
	})
}

// WithMaxMessageSize sets the largest accepted frame payload.
func WithMaxMessageSize(size uint32) Option {
	return optFunc(func(cfg *config) error {
		if size == 0 {
			return errors.New("max message size should be positive")
		}
		cfg.maxMessageSize = size

		return nil
	})
}

// WithBackoff sets the reconnect backoff of a Client.
func WithBackoff(bc BackoffConfig) Option {
	return optFunc(func(cfg *config) error {
		cfg.backoff = bc
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
