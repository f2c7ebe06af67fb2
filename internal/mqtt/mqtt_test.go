package mqtt

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/station"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakeClient struct {
	mu          sync.Mutex
	open        bool
	next        func() paho.Token
	messages    []published
	disconnects int
}

func (c *fakeClient) Connect() paho.Token { return completedToken(nil) }

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload})
	if c.next != nil {
		return c.next()
	}
	return completedToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.disconnects++
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Host = "broker.local"
	cfg.Timeout = 200 * time.Millisecond
	return cfg
}

func testRecord() station.Record {
	return station.Record{
		StationID: 3,
		RunID:     "run-1",
		Model:     "RF-200",
		Channels:  []string{"0201", "0202"},
		Labels:    []string{"Freezer", "CH0202"},
		Sample: series.Sample{
			Time:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Temperatures: []*float64{series.Float(-18.5), nil},
			Power:        series.Power{Power: series.Float(85.2)},
		},
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "fridgebench/bridge/state", BridgeStateTopic("fridgebench"))
	assert.Equal(t, "lab/a/station6/sample", SampleTopic("lab/a", 6))
}

func TestSamplePayload(t *testing.T) {
	raw, err := SamplePayload(testRecord())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, float64(3), doc["station"])
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", doc["time"])

	channels := doc["channels"].([]any)
	require.Len(t, channels, 2)
	first := channels[0].(map[string]any)
	assert.Equal(t, "0201", first["channel"])
	assert.Equal(t, "Freezer", first["label"])
	assert.Equal(t, -18.5, first["value"])
	assert.Nil(t, channels[1].(map[string]any)["value"])

	power := doc["power"].(map[string]any)
	assert.Equal(t, 85.2, power["power"])
	assert.Nil(t, power["voltage"])
}

func TestSamplePayloadMissingLabels(t *testing.T) {
	rec := testRecord()
	rec.Labels = nil
	raw, err := SamplePayload(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"label":"CH0202"`)
}

func TestRecordPublishes(t *testing.T) {
	fc := &fakeClient{open: true}
	p := newWithClient(testConfig(), fc, logger.Nop())

	require.NoError(t, p.Record(context.Background(), testRecord()))
	require.Len(t, fc.messages, 1)
	msg := fc.messages[0]
	assert.Equal(t, "fridgebench/station3/sample", msg.topic)
	assert.False(t, msg.retained)
	assert.Contains(t, string(msg.payload.([]byte)), `"run_id":"run-1"`)
}

func TestRecordNotConnected(t *testing.T) {
	p := newWithClient(testConfig(), &fakeClient{}, logger.Nop())

	err := p.Record(context.Background(), testRecord())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrNotConnected))
	assert.Equal(t, errors.ErrConnection, errors.Kind(err))
}

func TestRecordBrokerError(t *testing.T) {
	fc := &fakeClient{open: true, next: func() paho.Token { return completedToken(stderrors.New("refused")) }}
	p := newWithClient(testConfig(), fc, logger.Nop())

	err := p.Record(context.Background(), testRecord())
	assert.True(t, errors.HasCode(err, ErrPublishFailed))
}

func TestRecordTimeout(t *testing.T) {
	fc := &fakeClient{open: true, next: func() paho.Token { return pendingToken() }}
	p := newWithClient(testConfig(), fc, logger.Nop())

	start := time.Now()
	err := p.Record(context.Background(), testRecord())
	assert.True(t, errors.HasCode(err, ErrPublishTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRecordContextCancelled(t *testing.T) {
	fc := &fakeClient{open: true, next: func() paho.Token { return pendingToken() }}
	cfg := testConfig()
	cfg.Timeout = time.Minute
	p := newWithClient(cfg, fc, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Record(ctx, testRecord())
	assert.True(t, errors.HasCode(err, ErrPublishTimeout))
}

func TestCloseAnnouncesOffline(t *testing.T) {
	fc := &fakeClient{open: true}
	p := newWithClient(testConfig(), fc, logger.Nop())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	require.Len(t, fc.messages, 1)
	assert.Equal(t, "fridgebench/bridge/state", fc.messages[0].topic)
	assert.Equal(t, PayloadOffline, fc.messages[0].payload)
	assert.True(t, fc.messages[0].retained)
	assert.Equal(t, 1, fc.disconnects)
}

func TestNewDisabled(t *testing.T) {
	p, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.NoError(t, p.Record(context.Background(), testRecord()))
	assert.NoError(t, p.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, testConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no host", func(c *Config) { c.Host = "" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"no topic", func(c *Config) { c.BaseTopic = "" }},
		{"bad qos", func(c *Config) { c.QoS = 3 }},
		{"no timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrValidation, errors.Kind(err))
		})
	}
}
