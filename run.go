package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"i4.energy/across/serbridge/at"
	"i4.energy/across/serbridge/bridge"
	"i4.energy/across/serbridge/device"
	"i4.energy/across/serbridge/settings"
)

// run serves the bridge until it sleeps or a shutdown signal arrives. A
// restart rebuilds the device, the listener and the loop from the stored
// record.
func run(ctx context.Context, config *Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := settings.NewFileStore(config.DataDir)
	if err != nil {
		return err
	}
	matcher, err := at.MatcherFor(config.MatchMode)
	if err != nil {
		return err
	}

	logger.Info("Starting serial bridge", "version", version, "serial_port", config.SerialPort, "data_dir", config.DataDir)

	for {
		err := serve(ctx, config, store, matcher, logger)
		switch {
		case errors.Is(err, bridge.ErrRestart):
			logger.Info("Restarting bridge")
		case errors.Is(err, bridge.ErrSleep):
			logger.Info("Bridge entered low-power state, exiting")
			return nil
		case errors.Is(err, context.Canceled):
			logger.Info("Received shutdown signal")
			return nil
		default:
			logger.Error("Bridge failed", "error", err)
			return err
		}
	}
}

// serve runs one bridge lifecycle.
func serve(ctx context.Context, config *Config, store settings.Store, matcher at.Matcher, logger *slog.Logger) error {
	rec, fellBack, err := settings.LoadOrDefault(store, settings.ConfigName)
	if err != nil {
		logger.Error("Failed to persist default configuration", "error", err)
	}
	if fellBack {
		logger.Warn("Stored configuration unusable, using defaults")
	}

	baud := rec.BaudRate
	if baud == 0 {
		baud = config.BaudRate
	}
	port, err := device.SerialDialer{
		PortName:      config.SerialPort,
		BaudRate:      baud,
		IndicatorLine: config.IndicatorLine,
		ControlLine:   config.ControlLine,
	}.Dial(ctx)
	if err != nil {
		return err
	}
	defer port.Close()

	ln, err := net.Listen("tcp", net.JoinHostPort(config.ListenHost, strconv.Itoa(rec.Port)))
	if err != nil {
		return err
	}

	bridgeLogger := logger.With("component", "bridge")
	bridgeConfig, err := bridge.NewConfigBuilder().
		WithListener(ln).
		WithDevice(port).
		WithStore(store).
		WithRecord(rec).
		WithMatcher(matcher).
		WithCodeword(config.Codeword).
		WithIdleDivision(config.IdleDivision).
		WithLogger(bridgeLogger).
		WithSleeper(bridge.SleeperFunc(func() {
			bridgeLogger.Info("Device asleep")
		})).
		WithRestarter(bridge.RestarterFunc(func() {
			bridgeLogger.Info("Device restarting")
		})).
		Build()
	if err != nil {
		ln.Close()
		return err
	}
	loop, err := bridge.New(bridgeConfig)
	if err != nil {
		ln.Close()
		return err
	}

	if config.BindAddress != "" {
		httpServer := &http.Server{
			Addr: config.BindAddress,
			Handler: &Server{
				Logger: logger.With("component", "server"),
				Bridge: loop,
			},
		}
		go func() {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to gracefully shutdown server", "error", err)
			}
		}()
	}

	return loop.Run(ctx)
}
