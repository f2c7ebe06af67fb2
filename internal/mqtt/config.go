package mqtt

import (
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

const (
	defaultPort      = 1883
	defaultBaseTopic = "fridgebench"
	defaultTimeout   = 5 * time.Second
)

type Config struct {
	Enabled   bool
	Host      string
	Port      int
	Username  string
	Password  string
	ClientID  string
	BaseTopic string
	QoS       byte
	// Timeout bounds connect and publish acknowledgements.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:      defaultPort,
		BaseTopic: defaultBaseTopic,
		Timeout:   defaultTimeout,
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	errFactory := errors.New()
	if c.Host == "" {
		return errFactory.WithMessage(ErrInvalidBroker, "mqtt host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errFactory.WithData(ErrInvalidBroker, c.Port)
	}
	if c.BaseTopic == "" {
		return errFactory.WithMessage(ErrInvalidTopic, "mqtt base topic is required")
	}
	if c.QoS > 2 {
		return errFactory.WithData(ErrInvalidConfig, c.QoS)
	}
	if c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, c.Timeout)
	}
	return nil
}
