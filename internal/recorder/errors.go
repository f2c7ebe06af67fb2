package recorder

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Connection Errors
	ErrDial  = errors.RegisterKind("recorder_dial_failed", errors.ErrConnection)
	ErrSend  = errors.RegisterKind("recorder_send_failed", errors.ErrConnection)
	ErrRead  = errors.RegisterKind("recorder_read_failed", errors.ErrConnection)
	ErrNoAck = errors.RegisterKind("recorder_no_response", errors.ErrConnection)

	// Configuration Errors
	ErrInvalidAddress = errors.RegisterKind("recorder_invalid_address", errors.ErrValidation)
)
