package predictor

import (
    "context"
    "fmt"
    "time"

    "FinCast/internal/domain"
    domsvc "FinCast/internal/domain/service"
)

// RemoteTrainer delegates fitting to an external model service:
//
//	POST /model/fit      {"features": [[...]], "targets": [...]} -> {"model_id": "..."}
//	POST /model/predict  {"model_id": "...", "features": [...]}  -> {"prediction": 1.23}
//	GET  /health
type RemoteTrainer struct {
    base     *HTTPServiceBase
    attempts int
}

func NewRemoteTrainer(baseURL string, timeout time.Duration, attempts int) *RemoteTrainer {
    if attempts < 1 {
        attempts = 1
    }
    return &RemoteTrainer{base: NewHTTPServiceBase(baseURL, timeout), attempts: attempts}
}

type fitReq struct {
    Features [][]float64 `json:"features"`
    Targets  []float64   `json:"targets"`
}

type fitResp struct {
    ModelID string `json:"model_id"`
}

type predictReq struct {
    ModelID  string    `json:"model_id"`
    Features []float64 `json:"features"`
}

type predictResp struct {
    Prediction *float64 `json:"prediction"`
}

func (t *RemoteTrainer) Name() string { return "remote" }

// Healthy reports whether the model service answers its health check.
func (t *RemoteTrainer) Healthy(ctx context.Context) error {
    return t.base.GetJSON(ctx, "/health", nil)
}

func (t *RemoteTrainer) Fit(ctx context.Context, X [][]float64, y []float64) (domsvc.OneStepModel, error) {
    var fr fitResp
    if err := t.base.PostJSONWithRetry(ctx, "/model/fit", fitReq{Features: X, Targets: y}, &fr, t.attempts); err != nil {
        return nil, fmt.Errorf("%w: remote fit: %v", domain.ErrPredictorFailure, err)
    }
    if fr.ModelID == "" {
        return nil, fmt.Errorf("%w: remote fit returned no model id", domain.ErrPredictorFailure)
    }
    return &RemoteModel{base: t.base, id: fr.ModelID, attempts: t.attempts}, nil
}

// RemoteModel is a model held by the model service.
type RemoteModel struct {
    base     *HTTPServiceBase
    id       string
    attempts int
}

func (m *RemoteModel) ID() string { return m.id }

func (m *RemoteModel) Predict(ctx context.Context, features []float64) (float64, error) {
    var pr predictResp
    if err := m.base.PostJSONWithRetry(ctx, "/model/predict", predictReq{ModelID: m.id, Features: features}, &pr, m.attempts); err != nil {
        return 0, fmt.Errorf("remote predict: %w", err)
    }
    if pr.Prediction == nil {
        return 0, fmt.Errorf("remote predict: response has no prediction")
    }
    return *pr.Prediction, nil
}

var (
    _ domsvc.OneStepTrainer = (*RemoteTrainer)(nil)
    _ domsvc.OneStepModel   = (*RemoteModel)(nil)
)
