// Command scale-sim simulates a weighing scale connected to a scale driver.
//
// Usage:
//
//	scale-sim [flags]
//
// Flags:
//
//	-config string     Configuration file path
//	-driver string     Driver address (overrides the config file)
//	-log-level string  Log level: debug, info, warn, error (overrides the config file)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/go-scale/config"
	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scale-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "Configuration file path")
	driverAddr := flag.String("driver", "", "Driver address")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.LoadSimulator(*configFile)
	if err != nil {
		return err
	}
	if *driverAddr != "" {
		cfg.DriverAddress = *driverAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	sh, err := newShell()
	if err != nil {
		return err
	}
	defer func() { _ = sh.Close() }()

	l, err := cfg.Log.NewLogger(sh.Stdout())
	if err != nil {
		return err
	}
	logger.SetLogger(l)

	s := simulator.NewScale(
		simulator.WithResolution(cfg.Resolution),
		simulator.WithUnit(cfg.Unit),
		simulator.WithStabilizeTime(cfg.StabilizeTime),
		simulator.WithScaleLogger(l),
	)

	dev, err := simulator.NewDevice(cfg.DriverAddress, s,
		simulator.WithMaxResponseDelay(cfg.MaxResponseDelay),
		simulator.WithDeviceLogger(l),
	)
	if err != nil {
		return err
	}
	sh.device = dev

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := dev.Open(ctx); err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	go sh.Run(ctx, cancel)

	<-ctx.Done()

	return nil
}
