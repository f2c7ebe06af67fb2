package report

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	ErrInvalidWindow = errors.RegisterKind("report_invalid_window", errors.ErrValidation)
	ErrColumnCount   = errors.RegisterKind("report_column_count_mismatch", errors.ErrValidation)
)
