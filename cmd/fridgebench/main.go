package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/fridgebench/internal/archive"
	"codeberg.org/mutker/fridgebench/internal/config"
	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/mqtt"
	"codeberg.org/mutker/fridgebench/internal/observability"
	"codeberg.org/mutker/fridgebench/internal/pid"
	"codeberg.org/mutker/fridgebench/internal/powermeter"
	"codeberg.org/mutker/fridgebench/internal/recorder"
	"codeberg.org/mutker/fridgebench/internal/server"
	"codeberg.org/mutker/fridgebench/internal/station"
	"codeberg.org/mutker/fridgebench/internal/telemetry"
	"github.com/carlmjohnson/versioninfo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.ShowVersion {
		fmt.Printf("fridgebench %s\n", versioninfo.Short())
		return
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("version", versioninfo.Short()).Msg("Config loaded")

	os.Exit(execute(cfg, run))
}

// execute holds the PID file for the duration of runFn and returns the process exit code.
// The PID file is removed before execute returns.
func execute(cfg *config.Config, runFn func(context.Context, *config.Config) error) int {
	if err := pid.Write(cfg.PIDFile); err != nil {
		logger.Error().Err(err).Str("pid_file", pid.Path(cfg.PIDFile)).Msg("Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runFn(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Exiting with error")
		return 1
	}
	logger.Info().Msg("Exiting...")
	return 0
}

func run(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	metrics := observability.NewMetrics()

	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Recorder poller
	cache := telemetry.NewCache()
	rec := recorder.New(cfg.RecorderConfig(), logger.New("recorder"))
	poller, err := telemetry.NewPoller(cfg.TelemetryConfig(), rec, cache, logger.New("telemetry"), metrics)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	// Secondary sinks
	arch, err := archive.New(cfg.ArchiveConfig(), logger.New("archive"), archive.WithDropCounter(metrics))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer func() {
		if err := arch.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close archive")
		}
	}()

	pub, err := mqtt.New(cfg.MQTTConfig(), logger.New("mqtt"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer pub.Close()

	// Stations
	manager := station.NewManager(station.Deps{
		Cache: cache,
		Meters: func(sc station.Config) station.PowerMeter {
			return powermeter.New(sc.Meter, logger.New("powermeter").With("station", fmt.Sprint(sc.ID)))
		},
		Sinks:        []station.Sink{arch, pub},
		Metrics:      metrics,
		Log:          logger.New("station"),
		StopTimeout:  cfg.StopTimeout,
		MaxStaleness: 2 * cfg.TelemetryConfig().Interval,
		OnFatal: func(id int, err error) {
			logger.Error().Err(err).Int("station", id).Msg("Collection ended on its own")
		},
	},
		station.WithIntervals(cfg.SampleIntervals()),
		station.WithPercentBasis(cfg.Basis()),
	)

	stations, err := cfg.StationConfigs()
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	for _, sc := range stations {
		if err := manager.Configure(sc.ID, sc); err != nil {
			return errFactory.Wrap(errors.ErrInitFailed, err).WithData(sc.ID)
		}
	}

	var history server.History
	if cfg.Archive.Enabled {
		history = arch
	}
	srv := server.New(cfg.ServerConfig(), server.Deps{
		Stations: manager,
		Recorder: cache,
		History:  history,
		Metrics:  metrics.Handler(),
		Log:      logger.New("server"),
	}).HTTPServer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Received termination signal.")
	case err := <-serveErr:
		if err != nil {
			runErr = errFactory.Wrap(errors.ErrInitFailed, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := manager.StopAll(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to stop every station")
	}
	cancelRun()
	wg.Wait()

	return runErr
}
