// Package server exposes the station manager over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/fridgebench/internal/archive"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/station"
	"codeberg.org/mutker/fridgebench/internal/telemetry"
)

const defaultAddr = ":8080"

// Stations is the command and query surface of the acquisition core.
type Stations interface {
	Configure(id int, cfg station.Config) error
	Config(id int) (station.Config, error)
	Start(id int) error
	Stop(id int) error
	Snapshot(id int) (station.Status, error)
	Statuses() []station.Status
	Report(id int, start, end time.Time) (station.Report, error)
}

// History serves archived runs.
type History interface {
	Runs(ctx context.Context, stationID int) ([]archive.Run, error)
	Samples(ctx context.Context, runID string) ([]archive.Row, error)
}

type Config struct {
	Addr    string
	HTTPLog bool
	// Location is the zone of report window bounds given without an offset.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Addr:     defaultAddr,
		Location: time.Local,
	}
}

type Deps struct {
	Stations Stations
	Recorder telemetry.Reader
	// History is nil when the archive is disabled.
	History History
	Metrics http.Handler
	Log     logger.Logger
}

type Server struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Server{cfg: cfg, deps: deps}
}

// HTTPServer wraps the routes in an http.Server listening on the configured address.
func (s *Server) HTTPServer() *http.Server {
	addr := s.cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	return &http.Server{
		Addr:         addr,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
