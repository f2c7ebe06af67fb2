package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/recorder"
	"codeberg.org/mutker/fridgebench/internal/station"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// windowLayouts are accepted for report bounds without an offset.
var windowLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102_150405",
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if s.cfg.HTTPLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}
	e.GET("/recorder", s.RecorderHandler)

	e.GET("/stations", s.ListStationsHandler)
	e.GET("/stations/:id", s.StationHandler)
	e.GET("/stations/:id/config", s.GetConfigHandler)
	e.PUT("/stations/:id/config", s.PutConfigHandler)
	e.POST("/stations/:id/start", s.StartHandler)
	e.POST("/stations/:id/stop", s.StopHandler)
	e.GET("/stations/:id/report", s.ReportHandler)
	e.GET("/stations/:id/runs", s.RunsHandler)
	e.GET("/runs/:run/samples", s.RunSamplesHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "health_check: OK")
}

type recorderView struct {
	Connected bool                      `json:"connected"`
	UpdatedAt *time.Time                `json:"updated_at,omitempty"`
	Channels  []recorder.ChannelReading `json:"channels"`
}

// RecorderHandler returns the latest recorder snapshot, channels in id order.
func (s *Server) RecorderHandler(c echo.Context) error {
	view := recorderView{Channels: []recorder.ChannelReading{}}
	if s.deps.Recorder == nil {
		return c.JSON(http.StatusOK, view)
	}

	view.Connected = s.deps.Recorder.Connected()
	if snap := s.deps.Recorder.Snapshot(); snap != nil {
		at := snap.UpdatedAt
		view.UpdatedAt = &at
		for _, r := range snap.Readings {
			view.Channels = append(view.Channels, r)
		}
		slices.SortFunc(view.Channels, func(a, b recorder.ChannelReading) int {
			return strings.Compare(a.Channel, b.Channel)
		})
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) ListStationsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Stations.Statuses())
}

func (s *Server) StationHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	st, err := s.deps.Stations.Snapshot(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) GetConfigHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	cfg, err := s.deps.Stations.Config(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, configToBody(cfg))
}

// PutConfigHandler merges the body onto the current configuration of the station.
func (s *Server) PutConfigHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}

	var body configBody
	if err := c.Bind(&body); err != nil {
		return fail(c, errors.New().Wrap(ErrInvalidBody, err))
	}

	base, err := s.deps.Stations.Config(id)
	if err != nil && !errors.HasCode(err, station.ErrNotConfigured) {
		return fail(c, err)
	}
	cfg, err := body.apply(base)
	if err != nil {
		return fail(c, err)
	}
	if err := s.deps.Stations.Configure(id, cfg); err != nil {
		return fail(c, err)
	}

	stored, err := s.deps.Stations.Config(id)
	if err != nil {
		return fail(c, err)
	}
	s.deps.Log.Info().Int("station", id).Msg("Station configuration updated")
	return c.JSON(http.StatusOK, configToBody(stored))
}

func (s *Server) StartHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.deps.Stations.Start(id); err != nil {
		return fail(c, err)
	}
	st, err := s.deps.Stations.Snapshot(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, st)
}

func (s *Server) StopHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.deps.Stations.Stop(id); err != nil {
		return fail(c, err)
	}
	st, err := s.deps.Stations.Snapshot(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ReportHandler aggregates ?start=&end= of a station.
func (s *Server) ReportHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	start, err := s.parseTime(c.QueryParam("start"))
	if err != nil {
		return fail(c, err)
	}
	end, err := s.parseTime(c.QueryParam("end"))
	if err != nil {
		return fail(c, err)
	}

	rep, err := s.deps.Stations.Report(id, start, end)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (s *Server) RunsHandler(c echo.Context) error {
	id, err := stationID(c)
	if err != nil {
		return fail(c, err)
	}
	if s.deps.History == nil {
		return fail(c, errors.New().New(ErrNoArchive))
	}
	runs, err := s.deps.History.Runs(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) RunSamplesHandler(c echo.Context) error {
	if s.deps.History == nil {
		return fail(c, errors.New().New(ErrNoArchive))
	}
	rows, err := s.deps.History.Samples(c.Request().Context(), c.Param("run"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func stationID(c echo.Context) (int, error) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New().Wrap(ErrInvalidParam, err).WithData(raw)
	}
	return id, nil
}

func (s *Server) parseTime(raw string) (time.Time, error) {
	errFactory := errors.New()

	if raw == "" {
		return time.Time{}, errFactory.WithMessage(ErrInvalidParam, "start and end are required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range windowLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.cfg.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errFactory.WithData(ErrInvalidParam, raw)
}
