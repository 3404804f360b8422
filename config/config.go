// Package config loads the YAML configuration files of the scale driver and the
// scale simulator.
//
// Values are taken from the defaults, then from the file, then from the environment
// (SCALE_LISTEN, SCALE_LOG_LEVEL, SCALE_DRIVER_ADDR), and finally validated.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/driver"
	"github.com/arloliu/go-scale/logger"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values.
const (
	EnvListen     = "SCALE_LISTEN"
	EnvLogLevel   = "SCALE_LOG_LEVEL"
	EnvDriverAddr = "SCALE_DRIVER_ADDR"
)

// DefaultDriverAddress is the address the driver listens on and the simulator dials.
const DefaultDriverAddress = "127.0.0.1:3000"

// LogConfig configures the logger of a process.
type LogConfig struct {
	Level     string `yaml:"level" validate:"oneof=debug info warn warning error fatal"`
	Format    string `yaml:"format" validate:"oneof=json console"`
	AddSource bool   `yaml:"add_source"`
}

// NewLogger creates the logger described by the configuration, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	return logger.NewSlogWriter(w, level, c.Format == "console", c.AddSource), nil
}

// DriverConfig is the configuration of the scale driver.
type DriverConfig struct {
	ListenAddress   string        `yaml:"listen_address" validate:"required,hostname_port"`
	ResponseTimeout time.Duration `yaml:"response_timeout" validate:"gt=0"`
	SendTimeout     time.Duration `yaml:"send_timeout" validate:"gt=0"`
	Greeting        string        `yaml:"greeting" validate:"excludesall=_\r\n"`
	// HTTPAddress enables the HTTP API when set.
	HTTPAddress string    `yaml:"http_address" validate:"omitempty,hostname_port"`
	Log         LogConfig `yaml:"log"`
}

// SimulatorConfig is the configuration of the scale simulator.
type SimulatorConfig struct {
	DriverAddress    string        `yaml:"driver_address" validate:"required,hostname_port"`
	MaxResponseDelay time.Duration `yaml:"max_response_delay" validate:"gte=0"`
	StabilizeTime    time.Duration `yaml:"stabilize_time" validate:"gte=0"`
	Resolution       int           `yaml:"resolution" validate:"gte=0,lte=8"`
	Unit             string        `yaml:"unit" validate:"required,alpha"`
	Log              LogConfig     `yaml:"log"`
}

// DefaultDriverConfig returns the default driver configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		ListenAddress:   DefaultDriverAddress,
		ResponseTimeout: correlator.DefaultResponseTimeout,
		SendTimeout:     time.Second,
		Greeting:        driver.DefaultGreeting,
		Log:             LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultSimulatorConfig returns the default simulator configuration.
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		DriverAddress:    DefaultDriverAddress,
		MaxResponseDelay: 500 * time.Millisecond,
		StabilizeTime:    5 * time.Second,
		Resolution:       4,
		Unit:             "g",
		Log:              LogConfig{Level: "info", Format: "console"},
	}
}

// LoadDriver loads the driver configuration from path. An empty path loads the
// defaults.
func LoadDriver(path string) (*DriverConfig, error) {
	cfg := DefaultDriverConfig()
	if err := load(path, cfg); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(EnvListen); ok {
		cfg.ListenAddress = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSimulator loads the simulator configuration from path. An empty path loads
// the defaults.
func LoadSimulator(path string) (*SimulatorConfig, error) {
	cfg := DefaultSimulatorConfig()
	if err := load(path, cfg); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(EnvDriverAddr); ok {
		cfg.DriverAddress = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string, out any) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

var validate = func() func(any) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	return func(cfg any) error {
		if err := v.Struct(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		return nil
	}
}()
