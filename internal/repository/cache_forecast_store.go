package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
)

// CacheForecastStore keeps the latest table per symbol and backend in a cache.
type CacheForecastStore struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheForecastStore(c cache.Service, ttl time.Duration) *CacheForecastStore {
	return &CacheForecastStore{c: c, ttl: ttl}
}

func forecastKey(symbol, backend string) string {
	return cache.Key("forecast", symbol, backend)
}

func (s *CacheForecastStore) Name() string { return "cache" }

func (s *CacheForecastStore) Save(ctx context.Context, t *models.ForecastTable) error {
	if err := s.c.Set(ctx, forecastKey(t.Symbol, t.Backend), t, s.ttl); err != nil {
		return fmt.Errorf("cache forecast %s/%s: %w", t.Symbol, t.Backend, err)
	}
	return nil
}

func (s *CacheForecastStore) Latest(ctx context.Context, symbol, backend string) (*models.ForecastTable, error) {
	var t models.ForecastTable
	if err := s.c.Get(ctx, forecastKey(symbol, backend), &t); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrForecastNotFound, symbol, backend)
		}
		return nil, fmt.Errorf("read cached forecast: %w", err)
	}
	return &t, nil
}

var (
	_ domrepo.ForecastSink   = (*CacheForecastStore)(nil)
	_ domrepo.ForecastReader = (*CacheForecastStore)(nil)
)
