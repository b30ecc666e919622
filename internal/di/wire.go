//go:build wireinject
// +build wireinject

package di

import (
	"ChartScan/pkg/config"
	"ChartScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires every dependency and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideCache,

		// Repositories
		ProvideEventPublisher,
		ProvideBarStore,
		ProvideSignalStore,
		ProvideReportStore,
		ProvideRecordSink,

		// Use cases
		ProvideScanner,
		ProvideLifecycle,
		ProvideStats,
		ProvideBacktester,
		ProvideBacktestJob,
		ProvideBacktestQueue,
		ProvideCommandHandler,
		ProvideCommandConsumer,

		// Transport
		ProvideAPIHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
