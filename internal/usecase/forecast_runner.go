package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/forecast"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// ForecastRunner loads a series, runs one backend and hands the table to every sink.
type ForecastRunner struct {
	loader   domrepo.SeriesLoader
	registry *forecast.Registry
	cal      domsvc.Calendar
	sinks    []domrepo.ForecastSink
	metrics  domrepo.Metrics
	locker   domrepo.Locker
	l        *applogger.Logger

	horizon int
	workers int
	timeout time.Duration
}

// RunnerOption configures ForecastRunner.
type RunnerOption func(*ForecastRunner)

// WithLocker makes concurrent runs of the same symbol and backend fail fast.
func WithLocker(l domrepo.Locker) RunnerOption {
	return func(r *ForecastRunner) { r.locker = l }
}

// WithWorkers bounds how many symbols a batch forecasts at once.
func WithWorkers(n int) RunnerOption {
	return func(r *ForecastRunner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRunTimeout caps a single symbol run.
func WithRunTimeout(d time.Duration) RunnerOption {
	return func(r *ForecastRunner) { r.timeout = d }
}

func NewForecastRunner(
	loader domrepo.SeriesLoader,
	registry *forecast.Registry,
	cal domsvc.Calendar,
	sinks []domrepo.ForecastSink,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	horizon int,
	opts ...RunnerOption,
) *ForecastRunner {
	r := &ForecastRunner{
		loader:   loader,
		registry: registry,
		cal:      cal,
		sinks:    sinks,
		metrics:  metrics,
		l:        l,
		horizon:  horizon,
		workers:  1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backends lists the registered backend names.
func (r *ForecastRunner) Backends() []string { return r.registry.Names() }

// RunSymbol forecasts one symbol. Errors are *domain.SymbolError.
func (r *ForecastRunner) RunSymbol(ctx context.Context, symbol, backend string) (*models.ForecastTable, error) {
	table, res := r.run(ctx, symbol, backend)
	if res.Err != nil {
		return nil, res.Err
	}
	return table, nil
}

// RunBatch forecasts every symbol with a bounded worker pool. A failing symbol
// never stops the others; results keep the input order.
func (r *ForecastRunner) RunBatch(ctx context.Context, symbols []string, backend string) *models.BatchReport {
	report := &models.BatchReport{
		StartedAt: time.Now().UTC(),
		Results:   make([]models.SymbolResult, len(symbols)),
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(r.workers, len(symbols)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				_, report.Results[i] = r.run(ctx, symbols[i], backend)
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	r.l.Info("batch complete",
		applogger.String("backend", backend),
		applogger.Int("symbols", len(symbols)),
		applogger.Int("succeeded", report.Count(models.StatusSucceeded)),
		applogger.Int("skipped", report.Count(models.StatusSkipped)),
		applogger.Int("failed", report.Count(models.StatusFailed)),
		applogger.Duration("duration_ms", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

func (r *ForecastRunner) run(ctx context.Context, rawSymbol, rawBackend string) (*models.ForecastTable, models.SymbolResult) {
	start := time.Now()
	symbol := util.NormalizeSymbol(rawSymbol)
	backend := rawBackend
	if backend == "" {
		backend = string(domrepo.DefaultBackend())
	}
	res := models.SymbolResult{Symbol: symbol, Backend: backend}
	log := r.l.With(applogger.String("symbol", symbol), applogger.String("backend", backend))

	table, fallbacks, err := r.forecast(ctx, symbol, backend, log)
	res.Duration = time.Since(start)
	res.Fallbacks = fallbacks
	r.metrics.RecordLatency("forecast_run", res.Duration.Seconds())

	switch {
	case err == nil:
		res.Status = models.StatusSucceeded
		res.Backend = table.Backend
		r.metrics.RecordFallbacks(table.Backend, fallbacks)
		r.metrics.RecordLastForecast(symbol, table.Backend, table.Rows[len(table.Rows)-1].Value)
		log.Info("forecast complete",
			applogger.String("run_id", table.RunID),
			applogger.Int("horizon", table.Horizon()),
			applogger.Int("fallbacks", fallbacks),
			applogger.Duration("duration_ms", res.Duration),
		)
	case errors.Is(err, domain.ErrInsufficientHistory):
		res.Status = models.StatusSkipped
		res.Err = &domain.SymbolError{Symbol: symbol, Backend: backend, Err: err}
		r.metrics.RecordError("insufficient_history")
		log.Warn("symbol skipped", applogger.Error(err))
	default:
		res.Status = models.StatusFailed
		res.Err = &domain.SymbolError{Symbol: symbol, Backend: backend, Err: err}
		r.metrics.RecordError(errorKind(err))
		log.Error("forecast failed", applogger.Error(err))
	}
	r.metrics.RecordRun(res.Backend, string(res.Status))
	return table, res
}

func (r *ForecastRunner) forecast(ctx context.Context, symbol, backend string, log *applogger.Logger) (*models.ForecastTable, int, error) {
	if symbol == "" {
		return nil, 0, fmt.Errorf("%w: empty symbol", domain.ErrInvalidSeries)
	}
	if !domrepo.IsValidBackend(domrepo.Backend(backend)) {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, backend)
	}
	f, err := r.registry.Resolve(backend)
	if err != nil {
		return nil, 0, err
	}
	if f.Name() != backend {
		log.Warn("backend unavailable, using fallback", applogger.String("fallback", f.Name()))
	}

	if r.locker != nil {
		key := fmt.Sprintf("lock:run:%s:%s", symbol, f.Name())
		ok, err := r.locker.TryLock(ctx, key, r.lockTTL())
		if err != nil {
			return nil, 0, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s/%s", domain.ErrRunInProgress, symbol, f.Name())
		}
		defer func() {
			if err := r.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("release run lock", applogger.Error(err))
			}
		}()
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	series, err := r.loader.Load(ctx, symbol)
	if err != nil {
		return nil, 0, fmt.Errorf("load series: %w", err)
	}

	out, err := f.Forecast(ctx, series, r.horizon)
	if err != nil {
		return nil, 0, err
	}
	if len(out.Values) != r.horizon {
		return nil, 0, fmt.Errorf("%w: %s produced %d values for horizon %d",
			domain.ErrPredictorFailure, f.Name(), len(out.Values), r.horizon)
	}

	table, err := forecast.Assemble(symbol, f.Name(), series.LastDate(), out.Values, r.cal)
	if err != nil {
		return nil, out.Fallbacks, err
	}
	table.RunID = uuid.NewString()

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Save(ctx, table); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, out.Fallbacks, err
	}
	return table, out.Fallbacks, nil
}

func (r *ForecastRunner) lockTTL() time.Duration {
	if r.timeout > 0 {
		return r.timeout + 30*time.Second
	}
	return 5 * time.Minute
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrPredictorFailure):
		return "predictor_failure"
	case errors.Is(err, domain.ErrSeriesNotFound):
		return "series_not_found"
	case errors.Is(err, domain.ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, domain.ErrUnknownBackend):
		return "unknown_backend"
	case errors.Is(err, domain.ErrRunInProgress):
		return "run_in_progress"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
