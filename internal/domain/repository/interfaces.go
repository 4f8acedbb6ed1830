package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// SeriesLoader supplies a sorted, gap-resolved daily series for one symbol.
type SeriesLoader interface {
	Load(ctx context.Context, symbol string) (*models.Series, error)
}

// ForecastSink persists a complete forecast table.
type ForecastSink interface {
	Name() string
	Save(ctx context.Context, t *models.ForecastTable) error
}

// ForecastReader returns the latest stored table for symbol and backend.
type ForecastReader interface {
	Latest(ctx context.Context, symbol, backend string) (*models.ForecastTable, error)
}

type Metrics interface {
	RecordRun(backend, result string)
	RecordError(kind string)
	RecordFallbacks(backend string, n int)
	RecordLastForecast(symbol, backend string, value float64)
	RecordLatency(op string, seconds float64)
}

// Locker serializes runs of the same symbol and backend across workers.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
