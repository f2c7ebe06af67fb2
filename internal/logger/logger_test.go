package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("WARN"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel(""))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	defer logger.InitWithWriter(&bytes.Buffer{}, "info", true)

	log := logger.New("recorder").With("station", "3")
	log.Warn().Str("addr", "192.168.1.1:34434").Msg("poll failed")
	log.ErrorWithCode(errors.New().New(errors.ErrProtocol)).Msg("bad frame")

	out := buf.String()
	assert.Contains(t, out, "poll failed")
	assert.Contains(t, out, "recorder")
	assert.Contains(t, out, "192.168.1.1:34434")
	assert.Contains(t, out, "protocol_error")
}

func TestNopLogger(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() {
		log.Info().Int("n", 1).Msg("discarded")
		log.With("k", "v").Error().Msg("discarded")
	})
}
