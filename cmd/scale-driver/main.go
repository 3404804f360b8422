// Command scale-driver accepts scale connections and lets an operator tare, read,
// reset and write to the display of every connected scale.
//
// Usage:
//
//	scale-driver [flags]
//
// Flags:
//
//	-config string     Configuration file path
//	-log-level string  Log level: debug, info, warn, error (overrides the config file)
//	-http string       HTTP API address, e.g. ":8080" (overrides the config file)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-scale/api"
	"github.com/arloliu/go-scale/config"
	"github.com/arloliu/go-scale/driver"
	"github.com/arloliu/go-scale/logger"
	"github.com/arloliu/go-scale/transport"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scale-driver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	httpAddr := flag.String("http", "", "HTTP API address")
	flag.Parse()

	cfg, err := config.LoadDriver(*configFile)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *httpAddr != "" {
		cfg.HTTPAddress = *httpAddr
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

	d, err := driver.New(cfg.ListenAddress,
		driver.WithResponseTimeout(cfg.ResponseTimeout),
		driver.WithGreeting(cfg.Greeting),
		driver.WithLogger(l),
		driver.WithReportFunc(sh.report),
		driver.WithTransportOptions(transport.WithSendTimeout(cfg.SendTimeout)),
	)
	if err != nil {
		return err
	}
	sh.driver = d

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = d.Stop() }()

	if cfg.HTTPAddress != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           api.NewRouter(d, l),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			l.Info("http api listening", "address", cfg.HTTPAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Error("http api failed", "error", err)
				cancel()
			}
		}()

		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go sh.Run(ctx, cancel)

	<-ctx.Done()
	l.Info("shutting down")

	return nil
}
