package powermeter

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	// Connection Errors
	ErrDial = errors.RegisterKind("powermeter_dial_failed", errors.ErrConnection)
	ErrSend = errors.RegisterKind("powermeter_send_failed", errors.ErrConnection)
	ErrRead = errors.RegisterKind("powermeter_read_failed", errors.ErrConnection)

	// Protocol Errors
	ErrMalformed   = errors.RegisterKind("powermeter_malformed_response", errors.ErrProtocol)
	ErrFieldCount  = errors.RegisterKind("powermeter_field_count", errors.ErrProtocol)
	ErrFieldLabel  = errors.RegisterKind("powermeter_unexpected_label", errors.ErrProtocol)
	ErrFieldFormat = errors.RegisterKind("powermeter_invalid_number", errors.ErrProtocol)

	// Configuration Errors
	ErrInvalidHost = errors.RegisterKind("powermeter_invalid_host", errors.ErrValidation)
)
