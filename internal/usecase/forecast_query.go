package usecase

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/util"
)

// ForecastQueryUseCase serves stored forecasts to the API.
type ForecastQueryUseCase struct {
	reader  domrepo.ForecastReader
	timeout time.Duration
}

func NewForecastQueryUseCase(reader domrepo.ForecastReader) *ForecastQueryUseCase {
	return &ForecastQueryUseCase{reader: reader, timeout: 5 * time.Second}
}

// Latest returns the newest table for symbol and backend.
func (uc *ForecastQueryUseCase) Latest(ctx context.Context, q models.ForecastQuery) (*models.ForecastTable, error) {
	symbol := util.NormalizeSymbol(q.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", domain.ErrInvalidRequest)
	}
	backend := domrepo.Backend(q.Backend)
	if q.Backend == "" {
		backend = domrepo.DefaultBackend()
	}
	if !domrepo.IsValidBackend(backend) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, q.Backend)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.reader.Latest(ctx, symbol, string(backend))
}
