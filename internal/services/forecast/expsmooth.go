package forecast

import (
	"context"
	"fmt"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
)

// ExpSmoothing is simple exponential smoothing with a flat projection. It needs
// no model and serves as the fallback backend.
//
// The projected level is smoothed over the whole history, so it lags the last
// close when prices trend. Alpha 1 turns it into a naive last-value forecast.
type ExpSmoothing struct {
	alpha float64
}

func NewExpSmoothing(alpha float64) *ExpSmoothing {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &ExpSmoothing{alpha: alpha}
}

func (b *ExpSmoothing) Name() string { return string(repository.BackendExpSmoothing) }

func (b *ExpSmoothing) Forecast(ctx context.Context, series *models.Series, horizon int) (*domsvc.ForecastOutput, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	values := series.Values()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty series", domain.ErrInsufficientHistory)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level := values[0]
	for _, v := range values[1:] {
		level = b.alpha*v + (1-b.alpha)*level
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = level
	}
	return &domsvc.ForecastOutput{Values: out}, nil
}

var _ domsvc.Forecaster = (*ExpSmoothing)(nil)
