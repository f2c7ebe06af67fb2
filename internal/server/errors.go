package server

import (
	"net/http"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/station"
	"github.com/labstack/echo/v4"
)

var (
	ErrInvalidParam = errors.RegisterKind("server_invalid_parameter", errors.ErrValidation)
	ErrInvalidBody  = errors.RegisterKind("server_invalid_body", errors.ErrValidation)
	ErrNoArchive    = errors.RegisterKind("server_archive_disabled", errors.ErrNotFound)
)

type errorResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusOf maps an error onto an HTTP status through its taxonomy class.
func statusOf(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrAlreadyRunning), errors.HasCode(err, station.ErrStopInProgress):
		return http.StatusConflict
	case errors.HasCode(err, station.ErrNotConfigured):
		return http.StatusNotFound
	}

	switch errors.Kind(err) {
	case errors.ErrValidation:
		return http.StatusBadRequest
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrConnection, errors.ErrProtocol:
		return http.StatusBadGateway
	case errors.ErrResource:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.ErrInternal
	}
	return c.JSON(statusOf(err), errorResponse{
		Code:    code.String(),
		Kind:    errors.Kind(err).String(),
		Message: err.Error(),
	})
}
