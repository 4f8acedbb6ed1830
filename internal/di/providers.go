package di

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/services/features"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/predictor"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/queue"
	"FinCast/pkg/server"
	"FinCast/pkg/util"
)

// ProvideLogger creates the application logger. With kafka.log_topic set,
// warn and error entries are also aggregated and published through producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	if producer == nil || cfg.Kafka.LogTopic == "" {
		return l, func() {}, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		Interval:   cfg.Log.CollectInterval,
		MaxEntries: cfg.Log.CollectMax,
		Topic:      cfg.Kafka.LogTopic,
		Source:     cfg.Environment,
		Publisher:  producer,
	})
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when metrics are disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideRedisCache connects to Redis. Returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2),
		cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache returns Redis behind a short-lived local layer when Redis is
// enabled and an in-process cache otherwise.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func()) {
	// latest tables plus run locks for every configured symbol and backend
	size := 1000 + 4*len(cfg.Forecast.Symbols)
	switch {
	case rc != nil && cfg.Redis.LocalTTL > 0:
		lc := cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(size),
			cache.WithLayeredLocalTTL(cfg.Redis.LocalTTL),
		)
		return lc, func() { _ = lc.Close() }
	case rc != nil:
		return rc, func() {}
	default:
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(size))
		return mc, func() { _ = mc.Close() }
	}
}

// ProvideClickHouseClient connects when ClickHouse is the input source or a sink.
// Returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Input.Source != "clickhouse" && !cfg.HasSink("clickhouse") {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout+5*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCHSeriesStore creates the ClickHouse store and ensures its schema. Returns nil without a client.
func ProvideCHSeriesStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHSeriesStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHSeriesStore(ch,
		cfg.ClickHouse.Database,
		cfg.ClickHouse.PricesTable,
		cfg.ClickHouse.ForecastsTable,
		l,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, store.Schema()); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka sink or the log
// topic. Returns nil when neither is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.HasSink("kafka") && cfg.Kafka.LogTopic == "" {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Environment == "development"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideCacheForecastStore keeps the latest forecast per symbol for the API.
func ProvideCacheForecastStore(cfg *config.Config, c cache.Service) *internalrepo.CacheForecastStore {
	return internalrepo.NewCacheForecastStore(c, cfg.Redis.CacheTTL)
}

// ProvideSeriesLoader picks the price history source.
func ProvideSeriesLoader(cfg *config.Config, chStore *internalrepo.CHSeriesStore, l *applogger.Logger) (domrepo.SeriesLoader, error) {
	switch cfg.Input.Source {
	case "clickhouse":
		if chStore == nil {
			return nil, fmt.Errorf("clickhouse input selected without a clickhouse store")
		}
		return chStore, nil
	default:
		return internalrepo.NewCSVSeriesLoader(cfg.Input.Dir, l), nil
	}
}

// ProvideSinks builds the enabled forecast sinks in configuration order.
// The cache sink is always added so the API can serve the latest run.
func ProvideSinks(
	cfg *config.Config,
	l *applogger.Logger,
	chStore *internalrepo.CHSeriesStore,
	producer *pkgkafka.Producer,
	cacheStore *internalrepo.CacheForecastStore,
) ([]domrepo.ForecastSink, error) {
	sinks := make([]domrepo.ForecastSink, 0, len(cfg.Output.Sinks)+1)
	withCache := false
	for _, name := range cfg.Output.Sinks {
		switch name {
		case "csv":
			sinks = append(sinks, internalrepo.NewCSVForecastSink(cfg.Output.Dir, cfg.Output.PricePrecision, l))
		case "clickhouse":
			if chStore == nil {
				return nil, fmt.Errorf("clickhouse sink enabled without a clickhouse store")
			}
			sinks = append(sinks, chStore)
		case "kafka":
			if producer == nil {
				return nil, fmt.Errorf("kafka sink enabled without a producer")
			}
			sinks = append(sinks, internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.Topic, cfg.Output.PricePrecision, l))
		case "cache":
			withCache = true
			sinks = append(sinks, cacheStore)
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	if !withCache {
		sinks = append(sinks, cacheStore)
	}
	return sinks, nil
}

// ProvideForecastReader reads from the cache first, then ClickHouse when configured.
func ProvideForecastReader(cacheStore *internalrepo.CacheForecastStore, chStore *internalrepo.CHSeriesStore) domrepo.ForecastReader {
	if chStore == nil {
		return internalrepo.NewChainedForecastReader(cacheStore)
	}
	return internalrepo.NewChainedForecastReader(cacheStore, chStore)
}

// ProvideTrainer selects the one-step trainer for the lifetime of the process.
func ProvideTrainer(cfg *config.Config, l *applogger.Logger) domsvc.OneStepTrainer {
	return predictor.Select(context.Background(), cfg, l)
}

// ProvideRegistry registers every forecasting backend.
func ProvideRegistry(cfg *config.Config, trainer domsvc.OneStepTrainer, l *applogger.Logger) (*forecast.Registry, error) {
	lags, err := features.NewLagSet(cfg.Forecast.Lags...)
	if err != nil {
		return nil, fmt.Errorf("forecast lags: %w", err)
	}
	return forecast.NewRegistry(string(domrepo.BackendExpSmoothing),
		forecast.NewLagRegression(trainer, lags, cfg.TailSize(), l),
		forecast.NewExpSmoothing(cfg.Forecast.ExpSmoothingAlpha),
	), nil
}

// ProvideCalendar creates the business day calendar with configured holidays.
func ProvideCalendar(cfg *config.Config) domsvc.Calendar {
	return util.NewBusinessCalendar(cfg.Forecast.Holidays...)
}

// ProvideForecastRunner creates the forecast runner use case.
func ProvideForecastRunner(
	cfg *config.Config,
	loader domrepo.SeriesLoader,
	registry *forecast.Registry,
	cal domsvc.Calendar,
	sinks []domrepo.ForecastSink,
	m domrepo.Metrics,
	locks cache.Service,
	l *applogger.Logger,
) *usecase.ForecastRunner {
	return usecase.NewForecastRunner(loader, registry, cal, sinks, m, l, cfg.Forecast.Horizon,
		usecase.WithWorkers(cfg.Forecast.Workers),
		usecase.WithRunTimeout(cfg.Forecast.RunTimeout),
		usecase.WithLocker(locks),
	)
}

// ProvideForecastQuery creates the read side use case.
func ProvideForecastQuery(reader domrepo.ForecastReader) *usecase.ForecastQueryUseCase {
	return usecase.NewForecastQueryUseCase(reader)
}

// ProvideQueue creates the Redis job queue with the forecast job registered. Returns nil when disabled.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, runner *usecase.ForecastRunner, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l,
		&queue.QueueConfig{
			Workers:    cfg.Queue.Workers,
			RetryLimit: cfg.Queue.RetryLimit,
			RetryDelay: cfg.Queue.RetryDelay,
		},
		rc.Client(),
		queue.ModeProducerConsumer,
		queue.WithKeyPrefix(QueuePrefix(cfg)),
		queue.WithRetryPolicy(domain.Retryable),
	)
	q.RegisterJob(usecase.NewForecastJob(runner))
	return q
}

// ProvideKafkaConsumer consumes run requests from Kafka. Returns nil unless
// kafka.consume_requests is set.
func ProvideKafkaConsumer(cfg *config.Config, runner *usecase.ForecastRunner, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, func(), error) {
	if !cfg.Kafka.ConsumeRequests {
		return nil, func() {}, nil
	}
	c, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.ConsumerWorkers),
		pkgkafka.WithConsumerBufferSize(4*cfg.Kafka.ConsumerWorkers),
		pkgkafka.WithConsumerFetch(1, 1<<20),
		pkgkafka.WithConsumerRetry(cfg.Kafka.MaxAttempts, 200*time.Millisecond, 5*time.Second),
		pkgkafka.WithConsumerRetryPolicy(domain.Retryable),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka consumer: %w", err)
	}
	c.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.LoggingHook{Log: l}))
	c.RegisterHandler(usecase.NewKafkaRunHandler(cfg.Kafka.RequestsTopic, runner, m))

	// Stop is idempotent; Serve normally stops the consumer first.
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = c.Stop(ctx)
	}
	return c, cleanup, nil
}

// QueuePrefix is the Redis key prefix shared by queue workers and publishers.
func QueuePrefix(cfg *config.Config) string {
	return cfg.Redis.Prefix + ":queue"
}

// ProvideLimiter limits forecast run requests per client.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RunBurst, cfg.Server.RunRateLimit)
}

// ProvideForecastHandler creates the HTTP handler.
func ProvideForecastHandler(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.ForecastRunner,
	query *usecase.ForecastQueryUseCase,
	q *queue.RedisQueue,
	limiter *ratelimit.Limiter,
) *api.ForecastEchoHandler {
	var pub queue.Publisher
	if q != nil {
		pub = q
	}
	return api.NewForecastEchoHandler(l, runner, query, pub, limiter, cfg.Output.PricePrecision)
}

// ProvideHTTPServer creates the Echo server with the forecast routes.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.ForecastEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application. Infrastructure clients are released by
// the cleanup returned from InitializeApp.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.ForecastRunner,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	rc *cache.RedisCache,
) *server.App {
	return server.New(cfg, l, runner, srv,
		server.WithQueue(q),
		server.WithConsumer(consumer),
		server.WithRedis(rc, QueuePrefix(cfg)),
	)
}
