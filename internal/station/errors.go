package station

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Validation Errors
	ErrInvalidStation  = errors.RegisterKind("station_invalid_id", errors.ErrValidation)
	ErrNoStorage       = errors.RegisterKind("station_storage_unset", errors.ErrValidation)
	ErrNoChannels      = errors.RegisterKind("station_no_channels", errors.ErrValidation)
	ErrInvalidChannel  = errors.RegisterKind("station_invalid_channel", errors.ErrValidation)
	ErrDuplicate       = errors.RegisterKind("station_duplicate_channel", errors.ErrValidation)
	ErrRangeSection    = errors.RegisterKind("station_range_crosses_section", errors.ErrValidation)
	ErrInvalidInterval = errors.RegisterKind("station_invalid_interval", errors.ErrValidation)
	ErrStopInProgress  = errors.RegisterKind("station_stop_in_progress", errors.ErrValidation)
	ErrNotConfigured   = errors.RegisterKind("station_not_configured", errors.ErrValidation)

	// Resource Errors
	ErrStoreOpen   = errors.RegisterKind("station_store_open_failed", errors.ErrResource)
	ErrStoreAppend = errors.RegisterKind("station_store_append_failed", errors.ErrResource)

	// Report Errors
	ErrNoData = errors.RegisterKind("station_no_data", errors.ErrNotFound)
)
