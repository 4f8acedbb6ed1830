package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{zl: zerolog.New(buf), slot: &collectorSlot{}}
}

func TestLoggerFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.Warn("lag fallback",
		String("symbol", "AAPL"),
		Int("lag", 10),
		Float64("value", 1.5),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "lag fallback", got["message"])
	assert.Equal(t, "AAPL", got["symbol"])
	assert.EqualValues(t, 10, got["lag"])
	assert.EqualValues(t, 1.5, got["value"])
	assert.EqualValues(t, 1500, got["took"])
	assert.Equal(t, "boom", got["error"])
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).With(String("symbol", "MSFT"), String("backend", "lagreg"))

	l.Info("run complete")

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "MSFT", got["symbol"])
	assert.Equal(t, "lagreg", got["backend"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("ignored", Int("n", 1)) })
}
