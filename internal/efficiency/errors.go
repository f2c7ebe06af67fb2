package efficiency

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	ErrInvalidVolume      = errors.RegisterKind("efficiency_invalid_volume", errors.ErrValidation)
	ErrInvalidTemperature = errors.RegisterKind("efficiency_invalid_temperature", errors.ErrValidation)
)
