package forecast

import (
	"context"
	"errors"
	"fmt"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
)

// LagRegression fits a one-step model on lag features and unrolls it with the
// recursive Driver.
type LagRegression struct {
	trainer  domsvc.OneStepTrainer
	lags     features.LagSet
	tailSize int
	log      *logger.Logger
}

// NewLagRegression builds the lagreg backend. tailSize <= 0 means lags.Max().
func NewLagRegression(trainer domsvc.OneStepTrainer, lags features.LagSet, tailSize int, log *logger.Logger) *LagRegression {
	if tailSize <= 0 {
		tailSize = lags.Max()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LagRegression{trainer: trainer, lags: lags, tailSize: tailSize, log: log}
}

func (b *LagRegression) Name() string { return string(repository.BackendLagRegression) }

func (b *LagRegression) Forecast(ctx context.Context, series *models.Series, horizon int) (*domsvc.ForecastOutput, error) {
	values := series.Values()
	X, y, err := features.BuildTrainingSet(values, b.lags)
	if err != nil {
		return nil, err
	}

	model, err := b.trainer.Fit(ctx, X, y)
	if err != nil {
		if errors.Is(err, domain.ErrPredictorFailure) {
			return nil, fmt.Errorf("fit %s: %w", b.trainer.Name(), err)
		}
		return nil, fmt.Errorf("%w: fit %s: %v", domain.ErrPredictorFailure, b.trainer.Name(), err)
	}

	last := len(values) - 1
	initial, err := features.FeatureVectorAt(values, last, b.lags)
	if err != nil {
		return nil, err
	}

	log := b.log.With(logger.String("symbol", series.Symbol), logger.String("trainer", b.trainer.Name()))
	driver, err := NewDriver(model, b.lags, horizon,
		features.HistoricalTail(values, b.tailSize), values[last],
		WithLogger(log))
	if err != nil {
		return nil, err
	}
	trace, err := driver.Run(ctx, initial)
	if err != nil {
		return nil, err
	}
	log.Debug("recursive forecast complete",
		logger.Int("rows", len(X)),
		logger.Int("horizon", horizon),
		logger.Int("fallbacks", trace.Fallbacks),
	)
	return &domsvc.ForecastOutput{Values: trace.Values, Fallbacks: trace.Fallbacks}, nil
}

var _ domsvc.Forecaster = (*LagRegression)(nil)
