package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the application lifecycle for batch runs and the API server.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	runner      *usecase.ForecastRunner
	httpServer  *xhttp.Server
	queue       *queue.RedisQueue
	consumer    *pkgkafka.Consumer
	redis       *cache.RedisCache
	queuePrefix string
	closers     []closer
}

// Option configures App.
type Option func(*App)

// WithQueue attaches the job queue started by Serve. nil disables it.
func WithQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.queue = q }
}

// WithConsumer attaches the Kafka run-request consumer started by Serve. nil disables it.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithRedis attaches the Redis connection used to publish jobs from the CLI.
func WithRedis(rc *cache.RedisCache, queuePrefix string) Option {
	return func(a *App) {
		a.redis = rc
		a.queuePrefix = queuePrefix
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, runner *usecase.ForecastRunner, srv *xhttp.Server, opts ...Option) *App {
	a := &App{
		cfg:        cfg,
		log:        l,
		runner:     runner,
		httpServer: srv,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddCloser registers a resource released by Close. Closers run in reverse order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Backends lists the registered forecasting backends.
func (a *App) Backends() []string { return a.runner.Backends() }

// RunBatch forecasts symbols once. Empty symbols fall back to the configured list.
func (a *App) RunBatch(ctx context.Context, symbols []string, backend string) (*models.BatchReport, error) {
	if len(symbols) == 0 {
		symbols = a.cfg.Forecast.Symbols
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to forecast")
	}
	if backend == "" {
		backend = a.cfg.Forecast.Backend
	}

	a.log.Info("batch started",
		applogger.Strings("symbols", symbols),
		applogger.String("backend", backend),
		applogger.Int("horizon", a.cfg.Forecast.Horizon),
	)
	return a.runner.RunBatch(ctx, symbols, backend), nil
}

// Enqueue publishes one forecast job per symbol and returns the job ids.
func (a *App) Enqueue(ctx context.Context, symbols []string, backend string) ([]string, error) {
	if a.redis == nil {
		return nil, fmt.Errorf("enqueue requires redis.enabled")
	}
	if len(symbols) == 0 {
		symbols = a.cfg.Forecast.Symbols
	}
	if backend == "" {
		backend = a.cfg.Forecast.Backend
	}

	pub, err := queue.NewRedisPublisher(a.log, a.redis.Client(), queue.WithKeyPrefix(a.queuePrefix))
	if err != nil {
		return nil, err
	}
	defer func() { _ = pub.Stop(context.WithoutCancel(ctx)) }()

	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		id, err := pub.PublishMessage(ctx, usecase.ForecastJobType, models.RunRequest{Symbol: s, Backend: backend})
		if err != nil {
			return ids, fmt.Errorf("enqueue %s: %w", s, err)
		}
		ids = append(ids, id)
	}

	if stats, err := pub.Stats(ctx); err == nil {
		a.log.Info("forecast jobs enqueued",
			applogger.Int("jobs", len(ids)),
			applogger.Int64("pending", stats.Pending),
			applogger.Int64("retrying", stats.Retrying),
			applogger.Int64("dead", stats.Dead),
		)
	}
	return ids, nil
}

// Serve starts the queue workers and the HTTP API, and blocks until ctx is
// cancelled, SIGINT/SIGTERM arrives, or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return errors.Join(fmt.Errorf("start kafka consumer: %w", err), a.shutdown())
		}
	}

	errCh := a.httpServer.Start()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok {
			serveErr = err
		}
	}
	return errors.Join(serveErr, a.shutdown())
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer stop: %w", err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("queue stop: %w", err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

// Close releases infrastructure clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
