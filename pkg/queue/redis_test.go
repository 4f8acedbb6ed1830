package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/pkg/logger"
)

var errPermanent = errors.New("permanent")

type runPayload struct {
	Symbol string `json:"symbol"`
}

type recordingJob struct {
	mu       sync.Mutex
	seen     []string
	failures int32
	err      error
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "forecast.run" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	if atomic.AddInt32(&j.failures, -1) >= 0 {
		return j.err
	}
	p, err := ParsePayload[runPayload](payload)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seen = append(j.seen, p.Symbol)
	return nil
}

func (j *recordingJob) symbols() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.seen...)
}

func newQueue(t *testing.T, job Job) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedisQueue(logger.Nop(), &QueueConfig{Workers: 2, RetryLimit: 2, RetryDelay: 10 * time.Millisecond},
		client, ModeProducerConsumer,
		WithKeyPrefix("test:queue"),
		WithRetryPollInterval(20*time.Millisecond),
		WithRetryPolicy(func(err error) bool { return !errors.Is(err, errPermanent) }),
	)
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
		_ = client.Close()
	})
	return q
}

func TestRedisQueueProcessesMessages(t *testing.T) {
	job := &recordingJob{}
	q := newQueue(t, job)

	id, err := q.Enqueue(context.Background(), "forecast.run", runPayload{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return len(job.symbols()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"AAPL"}, job.symbols())

	_, err = q.Enqueue(context.Background(), "unknown", runPayload{})
	assert.Error(t, err)
}

func TestRedisQueueRetriesTransientErrors(t *testing.T) {
	job := &recordingJob{failures: 1, err: errors.New("connection reset")}
	q := newQueue(t, job)

	_, err := q.Enqueue(context.Background(), "forecast.run", runPayload{Symbol: "MSFT"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(job.symbols()) == 1 }, 5*time.Second, 20*time.Millisecond)
	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Dead)
}

func TestRedisQueueDeadLettersPermanentErrors(t *testing.T) {
	job := &recordingJob{failures: 100, err: errPermanent}
	q := newQueue(t, job)

	_, err := q.Enqueue(context.Background(), "forecast.run", runPayload{Symbol: "TSLA"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stats, err := q.Stats(context.Background())
		return err == nil && stats.Dead == 1
	}, 3*time.Second, 10*time.Millisecond)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Retrying)
	assert.Empty(t, job.symbols())
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[runPayload](json.RawMessage(`{"symbol":"NVDA"}`))
	require.NoError(t, err)
	assert.Equal(t, "NVDA", p.Symbol)

	_, err = ParsePayload[runPayload](nil)
	assert.Error(t, err)
}
