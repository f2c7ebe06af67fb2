package errors

// Taxonomy codes. Every package-level code maps onto one of these through Kind.
const (
	// ErrConnection marks an unreachable instrument or an I/O timeout.
	ErrConnection ErrorCode = "connection_error"
	// ErrProtocol marks a malformed frame or response.
	ErrProtocol ErrorCode = "protocol_error"
	// ErrValidation marks a rejected request: bad range, bad config, bad state transition.
	ErrValidation ErrorCode = "validation_error"
	// ErrResource marks a persistent store that cannot be created or appended to.
	ErrResource ErrorCode = "resource_error"
)

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotFound        ErrorCode = "not_found"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Lifecycle errors
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrNotRunning     ErrorCode = "not_running"
	ErrStopTimeout    ErrorCode = "stop_timeout"
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrTimeout        ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrConnection:      "Instrument unreachable",
	ErrProtocol:        "Malformed instrument response",
	ErrValidation:      "Validation failed",
	ErrResource:        "Storage unavailable",
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrNotFound:        "Resource not found",
	ErrInvalidConfig:   "Invalid configuration",
	ErrReadConfig:      "Failed to read config file",
	ErrBindFlags:       "Failed to bind flags",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidLogLevel: "invalid_log_level",
	ErrAlreadyRunning:  "Already running",
	ErrNotRunning:      "Not running",
	ErrStopTimeout:     "Collector did not stop in time",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrTimeout:         "Operation timed out",
}

// kinds maps a code onto its taxonomy class. Packages register their own codes with RegisterKind.
var kinds = map[ErrorCode]ErrorCode{
	ErrConnection:      ErrConnection,
	ErrTimeout:         ErrConnection,
	ErrProtocol:        ErrProtocol,
	ErrValidation:      ErrValidation,
	ErrInvalidArgument: ErrValidation,
	ErrInvalidConfig:   ErrValidation,
	ErrInvalidInterval: ErrValidation,
	ErrInvalidLogLevel: ErrValidation,
	ErrAlreadyRunning:  ErrValidation,
	ErrNotRunning:      ErrValidation,
	ErrNotFound:        ErrNotFound,
	ErrResource:        ErrResource,
	ErrStopTimeout:     ErrResource,
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// RegisterKind declares the taxonomy class of a package-specific code.
// It must only be called from package init or var blocks.
func RegisterKind(code, kind ErrorCode) ErrorCode {
	kinds[code] = kind
	return code
}
