//go:build wireinject
// +build wireinject

package di

import (
	"StockPulse/pkg/config"
	"StockPulse/pkg/server"

	"github.com/google/wire"
)

var commonSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideYahooClient,
	ProvideHTTPServer,
)

// InitializeDashboard wires up the dashboard binary.
// Wire will generate the implementation of this function.
func InitializeDashboard(cfg *config.Config) (*server.App, error) {
	wire.Build(
		commonSet,

		// Sources
		ProvideHistorySource,
		ProvidePriceFeed,

		// Storage
		ProvideClickHouseClient,
		ProvideArchive,
		ProvideAnalyticsCache,

		// Presentation
		ProvideHub,
		ProvideBoard,
		ProvidePresenter,

		// Use cases
		ProvideDashboard,
		ProvideDashboardScheduler,
		ProvideAnalytics,
		ProvideLimiter,
		ProvideDashboardHandler,

		// Application server
		ProvideDashboardApp,
	)
	return &server.App{}, nil
}

// InitializeProducer wires up the Kafka producer binary.
func InitializeProducer(cfg *config.Config) (*server.App, error) {
	wire.Build(
		commonSet,
		ProvideYahooPriceSource,
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvidePriceProducer,
		ProvideProducerScheduler,
		ProvideMetricsOnlyHandler,
		ProvideProducerApp,
	)
	return &server.App{}, nil
}
