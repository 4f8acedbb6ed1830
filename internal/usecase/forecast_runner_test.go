package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/repository"
	"FinCast/internal/services/features"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/predictor"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/util"
)

type mapLoader map[string]*models.Series

func (m mapLoader) Load(_ context.Context, symbol string) (*models.Series, error) {
	s, ok := m[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSeriesNotFound, symbol)
	}
	return s, nil
}

type memorySink struct {
	mu     sync.Mutex
	tables []*models.ForecastTable
	err    error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Save(_ context.Context, t *models.ForecastTable) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, t)
	return nil
}

// linear builds n business-day closes 100, 101, ... ending on a Friday.
func linear(symbol string, n int) *models.Series {
	s := &models.Series{Symbol: symbol}
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cal := util.NewBusinessCalendar()
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, models.Point{Date: d, Close: 100 + float64(i)})
		d = cal.NextBusinessDays(d, 1)[0]
	}
	return s
}

func newRunner(t *testing.T, loader mapLoader, sinks ...*memorySink) *ForecastRunner {
	t.Helper()
	lags, err := features.NewLagSet(1, 2, 3, 5, 10)
	require.NoError(t, err)
	registry := forecast.NewRegistry("expsmooth",
		forecast.NewLagRegression(predictor.NewOLSTrainer(1e-6), lags, 0, nil),
		forecast.NewExpSmoothing(0.3),
	)
	var out []domrepo.ForecastSink
	for _, s := range sinks {
		out = append(out, s)
	}
	return NewForecastRunner(loader, registry, util.NewBusinessCalendar(), out, metrics.Nop{}, applogger.Nop(), 30,
		WithWorkers(3), WithRunTimeout(time.Minute))
}

func TestRunSymbolProducesFullTable(t *testing.T) {
	sink := &memorySink{}
	r := newRunner(t, mapLoader{"AAPL": linear("AAPL", 60)}, sink)

	table, err := r.RunSymbol(context.Background(), " aapl ", "lagreg")
	require.NoError(t, err)

	require.Equal(t, 30, table.Horizon())
	assert.NotEmpty(t, table.RunID)
	assert.Equal(t, "lagreg", table.Backend)
	assert.True(t, table.Rows[0].Date.After(table.LastObserved))
	for i, row := range table.Rows {
		assert.NotEqual(t, time.Saturday, row.Date.Weekday())
		assert.NotEqual(t, time.Sunday, row.Date.Weekday())
		assert.InDelta(t, 160+float64(i), row.Value, 0.5)
	}
	require.Len(t, sink.tables, 1)
}

func TestRunBatchIsolatesSymbols(t *testing.T) {
	sink := &memorySink{}
	r := newRunner(t, mapLoader{
		"GOOD":  linear("GOOD", 40),
		"SHORT": linear("SHORT", 10),
	}, sink)

	report := r.RunBatch(context.Background(), []string{"GOOD", "SHORT", "MISSING"}, "lagreg")

	require.Len(t, report.Results, 3)
	assert.Equal(t, models.StatusSucceeded, report.Results[0].Status)
	assert.Equal(t, models.StatusSkipped, report.Results[1].Status)
	assert.ErrorIs(t, report.Results[1].Err, domain.ErrInsufficientHistory)
	assert.Equal(t, models.StatusFailed, report.Results[2].Status)
	assert.ErrorIs(t, report.Results[2].Err, domain.ErrSeriesNotFound)
	assert.Equal(t, "MISSING", report.Results[2].Symbol)

	require.Len(t, sink.tables, 1)
	assert.Equal(t, "GOOD", sink.tables[0].Symbol)
	assert.Equal(t, 1, report.Count(models.StatusSucceeded))
}

func TestRunSymbolSinkFailure(t *testing.T) {
	r := newRunner(t, mapLoader{"AAPL": linear("AAPL", 40)}, &memorySink{err: errors.New("disk full")})

	table, err := r.RunSymbol(context.Background(), "AAPL", "expsmooth")
	assert.Nil(t, table)
	var symErr *domain.SymbolError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "AAPL", symErr.Symbol)
}

func TestRunSymbolRejectsUnknownBackend(t *testing.T) {
	r := newRunner(t, mapLoader{"AAPL": linear("AAPL", 40)})
	_, err := r.RunSymbol(context.Background(), "AAPL", "prophet")
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)
	assert.Equal(t, []string{"expsmooth", "lagreg"}, r.Backends())
}

func TestRunSymbolLocked(t *testing.T) {
	locks := cache.NewMemoryCache()
	defer locks.Close()
	r := newRunner(t, mapLoader{"AAPL": linear("AAPL", 40)})
	WithLocker(locks)(r)

	ok, err := locks.TryLock(context.Background(), "lock:run:AAPL:lagreg", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.RunSymbol(context.Background(), "AAPL", "lagreg")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.True(t, domain.Retryable(err))

	require.NoError(t, locks.Unlock(context.Background(), "lock:run:AAPL:lagreg"))
	_, err = r.RunSymbol(context.Background(), "AAPL", "lagreg")
	assert.NoError(t, err)
}

func TestForecastJobAndQuery(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	store := repository.NewCacheForecastStore(mem, time.Hour)

	lags, err := features.NewLagSet(1, 2, 3, 5, 10)
	require.NoError(t, err)
	registry := forecast.NewRegistry("expsmooth",
		forecast.NewLagRegression(predictor.NewOLSTrainer(1e-6), lags, 0, nil),
		forecast.NewExpSmoothing(0.3))
	runner := NewForecastRunner(mapLoader{"MSFT": linear("MSFT", 40)}, registry, util.NewBusinessCalendar(),
		[]domrepo.ForecastSink{store}, metrics.Nop{}, applogger.Nop(), 30)

	job := NewForecastJob(runner)
	payload, _ := json.Marshal(models.RunRequest{Symbol: "MSFT", Backend: "expsmooth"})
	require.NoError(t, job.Handle(context.Background(), payload))

	err = job.Handle(context.Background(), json.RawMessage(`{"symbol":`))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.False(t, domain.Retryable(err))

	q := NewForecastQueryUseCase(store)
	table, err := q.Latest(context.Background(), models.ForecastQuery{Symbol: "msft", Backend: "expsmooth"})
	require.NoError(t, err)
	assert.Equal(t, 30, table.Horizon())

	_, err = q.Latest(context.Background(), models.ForecastQuery{Symbol: "MSFT"})
	assert.ErrorIs(t, err, domain.ErrForecastNotFound)
}

func TestKafkaRunHandler(t *testing.T) {
	sink := &memorySink{}
	r := newRunner(t, mapLoader{"NVDA": linear("NVDA", 40)}, sink)
	h := NewKafkaRunHandler("fincast.requests", r, metrics.Nop{})
	assert.Equal(t, "fincast.requests", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"nvda","backend":"lagreg"}`)))
	require.Len(t, sink.tables, 1)
	assert.Equal(t, "NVDA", sink.tables[0].Symbol)

	for _, raw := range []string{`not json`, `{"backend":"lagreg"}`} {
		err := h.Handle(context.Background(), []byte(raw))
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, raw)
		assert.False(t, domain.Retryable(err))
	}

	err := h.Handle(context.Background(), []byte(`{"symbol":"GONE"}`))
	assert.ErrorIs(t, err, domain.ErrSeriesNotFound)
}
