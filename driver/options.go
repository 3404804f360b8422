package driver

import (
	"errors"
	"time"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/transport"
)

// DefaultGreeting is shown on the display of every scale when it connects.
const DefaultGreeting = "Hello from Mexico!"

type config struct {
	responseTimeout  time.Duration
	greeting         string
	report           ReportFunc
	logger           logger.Logger
	transportOptions []transport.Option
}

// Option configures a Driver.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithResponseTimeout sets the time to wait for the response of a scale.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("response timeout should be positive")
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithGreeting sets the text displayed on a scale when it connects.
// An empty text disables the greeting.
func WithGreeting(text string) Option {
	return optFunc(func(cfg *config) error {
		cfg.greeting = text
		return nil
	})
}

// WithReportFunc sets the sink of per-device failures.
func WithReportFunc(fn ReportFunc) Option {
	return optFunc(func(cfg *config) error {
		cfg.report = fn
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

// WithTransportOptions sets options of the underlying transport server.
func WithTransportOptions(opts ...transport.Option) Option {
	return optFunc(func(cfg *config) error {
		cfg.transportOptions = append(cfg.transportOptions, opts...)
		return nil
	})
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		responseTimeout: correlator.DefaultResponseTimeout,
		greeting:        DefaultGreeting,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
