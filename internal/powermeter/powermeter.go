package powermeter

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/series"
)

const (
	DefaultBaseHost    = "192.168.1.1"
	DefaultPort        = 3300
	DefaultDialTimeout = 3 * time.Second
	DefaultIOTimeout   = 2 * time.Second
)

type Config struct {
	Host        string
	Port        int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Host == "" {
		return errFactory.New(ErrInvalidHost)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errFactory.New(ErrInvalidHost).WithData(c.Port)
	}
	return nil
}

// StationHost returns the meter host of a station: base advanced by the station id,
// so station 1 on 192.168.1.1 lives at 192.168.1.2.
func StationHost(base string, stationID int) (string, error) {
	errFactory := errors.New()

	addr, err := netip.ParseAddr(base)
	if err != nil {
		return "", errFactory.Wrap(ErrInvalidHost, err).WithData(base)
	}
	for i := 0; i < stationID; i++ {
		addr = addr.Next()
		if !addr.IsValid() {
			return "", errFactory.New(ErrInvalidHost).WithData(base)
		}
	}
	return addr.String(), nil
}

// Client holds one persistent connection to a PW3335-class meter. The connection is
// opened lazily and dropped on any failure; the next Query reconnects. There is no retry loop.
type Client struct {
	cfg Config
	log logger.Logger

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
}

func New(cfg Config, log logger.Logger) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultIOTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{cfg: cfg, log: log.With("address", cfg.Address())}
}

func (c *Client) Address() string {
	return c.cfg.Address()
}

// Connected reports whether a connection is currently held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Query sends one measurement command and parses the reply.
func (c *Client) Query(ctx context.Context) (series.Power, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	errFactory := errors.New()

	if c.conn == nil {
		if err := c.dial(ctx); err != nil {
			return series.Power{}, err
		}
	}

	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	_ = conn.SetDeadline(time.Now().Add(c.cfg.IOTimeout))

	if _, err := io.WriteString(conn, Command); err != nil {
		c.drop()
		return series.Power{}, errFactory.Wrap(ErrSend, err)
	}

	line, err := c.rd.ReadString('\n')
	if err != nil {
		c.drop()
		if ctx.Err() != nil {
			return series.Power{}, errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		}
		return series.Power{}, errFactory.Wrap(ErrRead, err)
	}

	power, err := ParseResponse(line)
	if err != nil {
		// A garbled reply leaves the stream position unknown.
		c.drop()
		return series.Power{}, err
	}

	return power, nil
}

// Close drops the connection. The client may still be used afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address())
	if err != nil {
		return errors.New().Wrap(ErrDial, err).WithData(c.cfg.Address())
	}
	c.log.Debug().Msg("Connected to power meter")
	c.conn = conn
	c.rd = bufio.NewReader(conn)
	return nil
}

func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.rd = nil
	c.log.Debug().Msg("Power meter connection dropped")
}
