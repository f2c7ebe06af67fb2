package logger

import "codeberg.org/mutker/fridgebench/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	// With returns a child logger carrying an extra string field on every event.
	With(key, value string) Logger
}
