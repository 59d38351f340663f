//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/cloudhive/chdriver/cmd/chdriverd/config"
	"github.com/cloudhive/chdriver/lib/driver"
	"github.com/cloudhive/chdriver/lib/machinename"
	"github.com/cloudhive/chdriver/lib/paths"
	"github.com/cloudhive/chdriver/lib/providers"
)

// application struct to hold initialized components
type application struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config *config.Config
	Paths  *paths.Paths
	Names  machinename.Service
	Driver *driver.Driver
}

// initializeApp is the injector function
func initializeApp() (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideLogger,
		providers.ProvideContext,
		providers.ProvideConfig,
		providers.ProvidePaths,
		providers.ProvideMachineNameService,
		providers.ProvideDriver,
		wire.Struct(new(application), "*"),
	))
}
