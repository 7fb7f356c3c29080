//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalPull/internal/domain/repository"
	internalrepo "SignalPull/internal/repository"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/config"
	"SignalPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,

		// Repositories
		ProvideHistoryStore,
		wire.Bind(new(repository.HistorySink), new(*internalrepo.HistoryStore)),
		ProvideSnapshotArchive,
		ProvideSignalPublisher,
		ProvideMarketData,

		// Domain services
		ProvideEvaluator,
		ProvideConfirmer,
		ProvideDispatcher,

		// Use cases
		usecase.NewBaselineTracker,
		usecase.NewSignalsQuery,
		ProvideSignalHandler,
		ProvideCycleRunner,

		// HTTP
		ProvideSignalsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
