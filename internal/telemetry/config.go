package telemetry

import (
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

const defaultInterval = 2 * time.Second

type Config struct {
	// Interval is the recorder poll period.
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: defaultInterval,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Interval <= 0 {
		return errFactory.New(ErrInvalidInterval).WithData(c.Interval)
	}
	return nil
}
