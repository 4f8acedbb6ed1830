package repository

import (
	"context"
	"fmt"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
)

// ChainedForecastReader asks each reader in order and returns the first hit.
// A not-found answer moves on to the next reader; any other error stops the chain.
type ChainedForecastReader struct {
	readers []domrepo.ForecastReader
}

func NewChainedForecastReader(readers ...domrepo.ForecastReader) *ChainedForecastReader {
	out := make([]domrepo.ForecastReader, 0, len(readers))
	for _, r := range readers {
		if r != nil {
			out = append(out, r)
		}
	}
	return &ChainedForecastReader{readers: out}
}

func (c *ChainedForecastReader) Latest(ctx context.Context, symbol, backend string) (*models.ForecastTable, error) {
	for _, r := range c.readers {
		t, err := r.Latest(ctx, symbol, backend)
		if err == nil {
			return t, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrForecastNotFound, symbol, backend)
}

var _ domrepo.ForecastReader = (*ChainedForecastReader)(nil)
