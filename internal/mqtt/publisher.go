// Package mqtt publishes every recorded sample to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/station"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is a station.Sink backed by a broker connection.
type Publisher interface {
	station.Sink
	Close() error
}

// client is the part of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type publisher struct {
	client client
	cfg    Config
	log    logger.Logger

	closeOnce sync.Once
}

type noopPublisher struct{}

// OptsFromConfig builds the client options: retained offline will, background reconnects.
func OptsFromConfig(cfg Config) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "fridgebench"
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetWill(BridgeStateTopic(cfg.BaseTopic), PayloadOffline, 0, true)
	return opts
}

// New connects to the broker, or returns a no-op publisher when cfg is disabled.
// An unreachable broker is not an error: the client keeps retrying in the background.
func New(cfg Config, log logger.Logger) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled {
		log.Debug().Msg("MQTT disabled, using no-op publisher")
		return &noopPublisher{}, nil
	}

	p := &publisher{cfg: cfg, log: log}
	opts := OptsFromConfig(cfg)
	opts.SetOnConnectHandler(func(paho.Client) { p.announce() })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	p.client = paho.NewClient(opts)
	p.connect()
	return p, nil
}

func newWithClient(cfg Config, c client, log logger.Logger) *publisher {
	return &publisher{client: c, cfg: cfg, log: log}
}

func (p *publisher) connect() {
	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.Timeout) {
		p.log.Warn().
			Str("host", p.cfg.Host).
			Int("port", p.cfg.Port).
			Msg("MQTT broker not reachable yet, retrying in background")
		return
	}
	if err := token.Error(); err != nil {
		p.log.Warn().Err(err).Msg("MQTT connect failed")
	}
}

func (p *publisher) announce() {
	token := p.client.Publish(BridgeStateTopic(p.cfg.BaseTopic), p.cfg.QoS, true, PayloadOnline)
	go func() {
		if !token.WaitTimeout(p.cfg.Timeout) {
			p.log.Warn().Msg("MQTT availability publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Msg("MQTT availability publish failed")
		}
	}()
}

// Record publishes rec on its station's sample topic and waits for the broker acknowledgement.
func (p *publisher) Record(ctx context.Context, rec station.Record) error {
	errFactory := errors.New()

	if !p.client.IsConnectionOpen() {
		return errFactory.New(ErrNotConnected)
	}

	payload, err := SamplePayload(rec)
	if err != nil {
		return errFactory.Wrap(ErrEncodePayload, err)
	}

	topic := SampleTopic(p.cfg.BaseTopic, rec.StationID)
	token := p.client.Publish(topic, p.cfg.QoS, false, payload)

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return errFactory.Wrap(ErrPublishFailed, err).WithData(topic)
		}
		return nil
	case <-timer.C:
		return errFactory.WithData(ErrPublishTimeout, topic)
	case <-ctx.Done():
		return errFactory.Wrap(ErrPublishTimeout, ctx.Err())
	}
}

// Close publishes the offline state and disconnects.
func (p *publisher) Close() error {
	p.closeOnce.Do(func() {
		if p.client.IsConnectionOpen() {
			token := p.client.Publish(BridgeStateTopic(p.cfg.BaseTopic), p.cfg.QoS, true, PayloadOffline)
			token.WaitTimeout(p.cfg.Timeout)
		}
		p.client.Disconnect(uint(p.cfg.Timeout.Milliseconds()))
	})
	return nil
}

func (*noopPublisher) Record(context.Context, station.Record) error { return nil }

func (*noopPublisher) Close() error { return nil }
