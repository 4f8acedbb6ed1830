package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	"FinCast/pkg/queue"
)

// ForecastJobType is the queue message type for asynchronous forecast runs.
const ForecastJobType = "forecast.run"

// ForecastJob runs queued forecast requests.
type ForecastJob struct {
	runner *ForecastRunner
}

func NewForecastJob(runner *ForecastRunner) *ForecastJob {
	return &ForecastJob{runner: runner}
}

func (j *ForecastJob) Name() string { return "forecast-runner" }
func (j *ForecastJob) Type() string { return ForecastJobType }

func (j *ForecastJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.ParsePayload[models.RunRequest](payload)
	if err != nil {
		return fmt.Errorf("%w: forecast job payload: %v", domain.ErrInvalidRequest, err)
	}
	_, err = j.runner.RunSymbol(ctx, req.Symbol, req.Backend)
	return err
}

var _ queue.Job = (*ForecastJob)(nil)
