//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideCHSeriesStore,
		ProvideCacheForecastStore,
		ProvideSeriesLoader,
		ProvideSinks,
		ProvideForecastReader,

		// Forecasting
		ProvideTrainer,
		ProvideRegistry,
		ProvideCalendar,

		// Use cases
		ProvideForecastRunner,
		ProvideForecastQuery,
		ProvideQueue,
		ProvideKafkaConsumer,

		// HTTP
		ProvideLimiter,
		ProvideForecastHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return nil, nil, nil
}
