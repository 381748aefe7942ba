//go:build wireinject
// +build wireinject

package di

import (
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Core
		ProvideEngineHolder,
		ProvideViewCache,
		ProvideDashboardService,
		ProvideRateLimiter,
		ProvideRetentionSweeper,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Sinks
		ProvideEventArchive,
		ProvideEventArchiver,
		ProvideAlertPublisher,
		ProvideAlertDispatcher,

		// Intake
		ProvideIngestService,
		ProvideKafkaEventsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
