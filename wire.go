//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/consumer"
	"github.com/gemstats/download-counter/controllers"
	"github.com/gemstats/download-counter/counter"
	"github.com/gemstats/download-counter/marker"
	"github.com/gemstats/download-counter/storage"
)

var (
	configInjectorSet = wire.NewSet(GetConfig,
		wire.Bind(new(config.HTTPConfig), new(*config.Config)),
		wire.Bind(new(config.RelationalDatabaseConfig), new(*config.Config)),
		wire.Bind(new(config.LogConfig), new(*config.Config)),
		wire.Bind(new(config.ObjectStoreConfig), new(*config.Config)),
		wire.Bind(new(config.MarkerStoreConfig), new(*config.Config)),
		wire.Bind(new(config.ConsumerConfig), new(*config.Config)),
		wire.Bind(new(config.CounterConfig), new(*config.Config)))
	serviceInjectorSet = wire.NewSet(configInjectorSet, GetMigrationConfig, NewServerListener, NewHTTPServiceContainer,
		wire.Bind(new(controllers.ServerLifecycleListener), new(*ServerLifecycleListenerImpl)),
		storage.GetNewDataAccessor, marker.MarkerInjector, counter.ProcessorInjector,
		consumer.MetricsInjector, consumer.ConsumerInjector, controllers.ControllerInjector)
)

// GetAppVersion retrieves the app version
func GetAppVersion() config.AppVersion {
	wire.Build(config.GetVersion)

	return ""
}

// GetHTTPServer builds the full service container from the CLI configuration
func GetHTTPServer(ctx context.Context, cliConfig *config.CLIConfig) (*HTTPServiceContainer, error) {
	wire.Build(serviceInjectorSet)

	return &HTTPServiceContainer{}, nil
}
