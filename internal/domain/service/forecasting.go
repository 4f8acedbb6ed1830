package service

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// OneStepModel is a trained regression predicting the next value from one feature vector.
type OneStepModel interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}

// OneStepTrainer fits a OneStepModel on a feature matrix and target vector.
type OneStepTrainer interface {
	Name() string
	Fit(ctx context.Context, X [][]float64, y []float64) (OneStepModel, error)
}

// Forecaster turns a series into horizon future values in generation order.
type Forecaster interface {
	Name() string
	Forecast(ctx context.Context, series *models.Series, horizon int) (*ForecastOutput, error)
}

// ForecastOutput carries the generated values plus run diagnostics.
type ForecastOutput struct {
	Values    []float64
	Fallbacks int
}

// Calendar yields trading days.
type Calendar interface {
	NextBusinessDays(start time.Time, count int) []time.Time
}
