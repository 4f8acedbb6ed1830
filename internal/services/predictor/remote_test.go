package predictor

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "FinCast/internal/domain"
    "FinCast/pkg/config"
    "FinCast/pkg/logger"
)

func modelService(t *testing.T, fitFailures int32) (*httptest.Server, *int32) {
    t.Helper()
    var fitCalls int32
    mux := http.NewServeMux()
    mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
    })
    mux.HandleFunc("/model/fit", func(w http.ResponseWriter, r *http.Request) {
        n := atomic.AddInt32(&fitCalls, 1)
        if n <= fitFailures {
            http.Error(w, "busy", http.StatusServiceUnavailable)
            return
        }
        var req fitReq
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Features) != len(req.Targets) {
            http.Error(w, "bad request", http.StatusBadRequest)
            return
        }
        _ = json.NewEncoder(w).Encode(map[string]string{"model_id": "m-1"})
    })
    mux.HandleFunc("/model/predict", func(w http.ResponseWriter, r *http.Request) {
        var req predictReq
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelID != "m-1" {
            http.Error(w, "unknown model", http.StatusNotFound)
            return
        }
        _ = json.NewEncoder(w).Encode(map[string]float64{"prediction": req.Features[0] + 1})
    })
    srv := httptest.NewServer(mux)
    t.Cleanup(srv.Close)
    return srv, &fitCalls
}

func TestRemoteTrainerFitPredict(t *testing.T) {
    srv, calls := modelService(t, 1)
    tr := NewRemoteTrainer(srv.URL+"/", time.Second, 3)

    require.NoError(t, tr.Healthy(context.Background()))
    model, err := tr.Fit(context.Background(), [][]float64{{1, 2}}, []float64{3})
    require.NoError(t, err)
    assert.Equal(t, int32(2), atomic.LoadInt32(calls))
    assert.Equal(t, "m-1", model.(*RemoteModel).ID())

    got, err := model.Predict(context.Background(), []float64{41, 40})
    require.NoError(t, err)
    assert.Equal(t, 42.0, got)
}

func TestRemoteTrainerFitFailure(t *testing.T) {
    srv, _ := modelService(t, 10)
    tr := NewRemoteTrainer(srv.URL, time.Second, 2)

    _, err := tr.Fit(context.Background(), [][]float64{{1}}, []float64{2})
    assert.ErrorIs(t, err, domain.ErrPredictorFailure)
}

func TestSelect(t *testing.T) {
    cfg := config.Default()
    assert.Equal(t, "ols", Select(context.Background(), cfg, logger.Nop()).Name())

    srv, _ := modelService(t, 0)
    cfg.ModelService.URL = srv.URL
    assert.Equal(t, "remote", Select(context.Background(), cfg, logger.Nop()).Name())

    down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusInternalServerError)
    }))
    defer down.Close()
    cfg.ModelService.URL = down.URL
    assert.Equal(t, "ols", Select(context.Background(), cfg, logger.Nop()).Name())
}
