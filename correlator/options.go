package correlator

import (
	"errors"
	"time"

	"github.com/arloliu/go-scale/logger"
)

// DefaultResponseTimeout is the default time to wait for the response of a command.
const DefaultResponseTimeout = 1000 * time.Millisecond

type config struct {
	responseTimeout time.Duration
	logger          logger.Logger
}

// Option configures a Correlator.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithResponseTimeout sets the time to wait for the response of a command.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("response timeout should be positive")
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithLogger sets the logger used for traffic and error logs.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
