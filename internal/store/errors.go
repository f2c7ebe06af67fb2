package store

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Resource Errors
	ErrCreate = errors.RegisterKind("store_create_failed", errors.ErrResource)
	ErrWrite  = errors.RegisterKind("store_write_failed", errors.ErrResource)
	ErrRead   = errors.RegisterKind("store_read_failed", errors.ErrResource)
	ErrClosed = errors.RegisterKind("store_closed", errors.ErrResource)

	// Format Errors
	ErrNoHeader  = errors.RegisterKind("store_missing_header", errors.ErrResource)
	ErrRowFormat = errors.RegisterKind("store_malformed_row", errors.ErrResource)
	ErrRowWidth  = errors.RegisterKind("store_row_width_mismatch", errors.ErrValidation)
	ErrNoFile    = errors.RegisterKind("store_no_data_file", errors.ErrNotFound)
)
