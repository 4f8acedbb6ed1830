package predictor

import (
    "context"
    "time"

    domsvc "FinCast/internal/domain/service"
    "FinCast/pkg/config"
    "FinCast/pkg/logger"
)

// Select picks the one-step trainer once at startup: the remote model service
// when configured and healthy, otherwise in-process OLS.
func Select(ctx context.Context, cfg *config.Config, log *logger.Logger) domsvc.OneStepTrainer {
    local := NewOLSTrainer(cfg.Forecast.Ridge)
    url := cfg.ModelService.URL
    if url == "" {
        log.Info("using in-process trainer", logger.String("trainer", local.Name()))
        return local
    }

    remote := NewRemoteTrainer(url, cfg.ModelService.Timeout, cfg.ModelService.Retries)
    hctx, cancel := context.WithTimeout(ctx, healthTimeout(cfg.ModelService.Timeout))
    defer cancel()
    if err := remote.Healthy(hctx); err != nil {
        log.Warn("model service unavailable, falling back to in-process trainer",
            logger.String("url", url),
            logger.String("trainer", local.Name()),
            logger.Error(err),
        )
        return local
    }
    log.Info("using remote model service", logger.String("url", url))
    return remote
}

func healthTimeout(d time.Duration) time.Duration {
    if d <= 0 || d > 5*time.Second {
        return 5 * time.Second
    }
    return d
}
