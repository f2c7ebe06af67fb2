package telemetry

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Configuration Errors
	ErrInvalidInterval = errors.RegisterKind("telemetry_invalid_interval", errors.ErrValidation)
	ErrMissingSource   = errors.RegisterKind("telemetry_missing_source", errors.ErrValidation)

	// Collection Errors
	ErrPollFailed = errors.RegisterKind("telemetry_poll_failed", errors.ErrConnection)
)
