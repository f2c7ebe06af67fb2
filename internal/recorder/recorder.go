package recorder

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
)

// Command requests the latest value of every channel from 0001 to 1210.
const Command = "FData,0,0001,1210\r\n"

const (
	DefaultAddress     = "192.168.1.1:34434"
	DefaultDialTimeout = 3 * time.Second
	DefaultSettle      = 500 * time.Millisecond
	DefaultReadTimeout = 2 * time.Second
	DefaultMaxResponse = 10240
)

type Config struct {
	Address     string
	DialTimeout time.Duration
	// Settle is the pause between sending the command and reading the reply.
	Settle      time.Duration
	ReadTimeout time.Duration
	MaxResponse int
}

func DefaultConfig() Config {
	return Config{
		Address:     DefaultAddress,
		DialTimeout: DefaultDialTimeout,
		Settle:      DefaultSettle,
		ReadTimeout: DefaultReadTimeout,
		MaxResponse: DefaultMaxResponse,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return errFactory.Wrap(ErrInvalidAddress, err).WithData(c.Address)
	}
	return nil
}

// Client talks to a GX20-class recorder. Each Poll opens a fresh connection,
// so a Client is safe for use from one poller goroutine without extra locking.
type Client struct {
	cfg Config
	log logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.Settle < 0 {
		cfg.Settle = def.Settle
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.MaxResponse <= 0 {
		cfg.MaxResponse = def.MaxResponse
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{cfg: cfg, log: log.With("address", cfg.Address)}
}

func (c *Client) Address() string {
	return c.cfg.Address
}

// Poll requests all channel values. On any failure it returns an empty, non-nil
// Readings together with the error.
func (c *Client) Poll(ctx context.Context) (Readings, error) {
	raw, err := c.exchange(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Recorder poll failed")
		return Readings{}, err
	}

	readings := Decode(raw)
	if len(readings) == 0 {
		c.log.Debug().Int("bytes", len(raw)).Msg("Recorder response contained no channel lines")
	}
	return readings, nil
}

func (c *Client) exchange(ctx context.Context) (string, error) {
	errFactory := errors.New()

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return "", errFactory.Wrap(ErrDial, err).WithData(c.cfg.Address)
	}
	defer conn.Close()

	// Unblock reads and writes when ctx is cancelled mid-exchange.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.DialTimeout))
	if _, err := io.WriteString(conn, Command); err != nil {
		return "", errFactory.Wrap(ErrSend, err)
	}

	if c.cfg.Settle > 0 {
		timer := time.NewTimer(c.cfg.Settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		case <-timer.C:
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	buf := make([]byte, c.cfg.MaxResponse)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		if err == io.EOF || (n > 0 && errors.Is(err, os.ErrDeadlineExceeded) && ctx.Err() == nil) {
			break
		}
		if ctx.Err() != nil {
			return "", errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		}
		return "", errFactory.Wrap(ErrRead, err)
	}

	if n == 0 {
		return "", errFactory.New(ErrNoAck).WithData(c.cfg.Address)
	}

	return string(buf[:n]), nil
}
