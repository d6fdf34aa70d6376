package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.Info("tick ok",
		String("symbol", "TCS.NS"),
		Int("n", 3),
		Float64("price", 101.5),
		Bool("warm", false),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "tick ok", got["message"])
	assert.Equal(t, "TCS.NS", got["symbol"])
	assert.EqualValues(t, 3, got["n"])
	assert.EqualValues(t, 101.5, got["price"])
	assert.Equal(t, false, got["warm"])
	assert.Equal(t, "boom", got["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel).With(String("component", "scheduler"))

	l.Info("started")
	assert.Contains(t, buf.String(), `"component":"scheduler"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}
