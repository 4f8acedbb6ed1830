package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, "lagreg", c.Forecast.Backend)
	assert.Equal(t, 30, c.Forecast.Horizon)
	assert.Equal(t, []int{1, 2, 3, 5, 10}, c.Forecast.Lags)
	assert.Equal(t, 10, c.TailSize())
	assert.Equal(t, []string{"csv"}, c.Output.Sinks)
	assert.Equal(t, 0.3, c.Forecast.ExpSmoothingAlpha)
	assert.Equal(t, 2*time.Minute, c.Forecast.RunTimeout)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 30*time.Second, c.Log.CollectInterval)
	assert.Equal(t, 30*time.Second, c.Redis.LocalTTL)
	assert.Empty(t, c.Kafka.LogTopic)
	require.NoError(t, c.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
forecast:
  horizon: 10
  lags: [1, 7]
  tail_size: 20
  symbols: [AAPL, MSFT]
output:
  sinks: [csv, cache]
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 10, c.Forecast.Horizon)
	assert.Equal(t, []int{1, 7}, c.Forecast.Lags)
	assert.Equal(t, 20, c.TailSize())
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Forecast.Symbols)
	assert.True(t, c.HasSink("cache"))
	assert.False(t, c.HasSink("kafka"))
	assert.Equal(t, 4, c.Forecast.Workers)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate lags":       "forecast:\n  lags: [1, 2, 2]\n",
		"non-positive lag":     "forecast:\n  lags: [0, 2]\n",
		"unknown backend":      "forecast:\n  backend: prophet\n",
		"zero horizon":         "forecast:\n  horizon: 0\n",
		"kafka without broker": "output:\n  sinks: [kafka]\n",
		"clickhouse no host":   "input:\n  source: clickhouse\n",
		"queue without redis":  "queue:\n  enabled: true\n",
		"bad sink":             "output:\n  sinks: [s3]\n",
		"consumer no broker":   "kafka:\n  consume_requests: true\n",
		"log topic no broker":  "kafka:\n  log_topic: fincast.logs\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  sinks: [csv, kafka]\n"), 0o644))

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("FINCAST_SYMBOLS", "aapl,msft")
	t.Setenv("FINCAST_BACKEND", "expsmooth")
	t.Setenv("FINCAST_HORIZON", "5")
	t.Setenv("KAFKA_CONSUME_REQUESTS", "true")
	t.Setenv("KAFKA_LOG_TOPIC", "fincast.logs")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"aapl", "msft"}, c.Forecast.Symbols)
	assert.Equal(t, "expsmooth", c.Forecast.Backend)
	assert.Equal(t, 5, c.Forecast.Horizon)
	assert.True(t, c.Kafka.ConsumeRequests)
	assert.Equal(t, "fincast.requests", c.Kafka.RequestsTopic)
	assert.Equal(t, "fincast.requests.dlq", c.Kafka.DLQTopic)
	assert.Equal(t, "fincast.logs", c.Kafka.LogTopic)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
