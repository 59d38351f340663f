package providers

import (
	"context"
	"log/slog"
	"os"

	"github.com/cloudhive/chdriver/cmd/chdriverd/config"
	"github.com/cloudhive/chdriver/lib/driver"
	"github.com/cloudhive/chdriver/lib/logger"
	"github.com/cloudhive/chdriver/lib/machinename"
	"github.com/cloudhive/chdriver/lib/otel"
	"github.com/cloudhive/chdriver/lib/paths"
)

// ProvideLogger provides a structured logger. Records carrying a "domain"
// attribute are mirrored to that domain's log file, and everything is
// bridged to OpenTelemetry when a global log handler has been set.
func ProvideLogger(cfg *config.Config, p *paths.Paths) *slog.Logger {
	var base slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if otelHandler := otel.GetGlobalLogHandler(); otelHandler != nil {
		base = logger.NewFanoutHandler(base, otelHandler)
	}
	return slog.New(logger.NewDomainLogHandler(base, p.DomainLog))
}

// ProvideContext provides a context with logger attached
func ProvideContext(log *slog.Logger) context.Context {
	return logger.AddToContext(context.Background(), log)
}

// ProvideConfig provides the application configuration
func ProvideConfig() *config.Config {
	return config.Load()
}

// ProvidePaths provides typed state-directory path construction
func ProvidePaths(cfg *config.Config) *paths.Paths {
	return paths.New(cfg.StateDir)
}

// ProvideMachineNameService provides the systemd-machined name service
func ProvideMachineNameService(cfg *config.Config) machinename.Service {
	return machinename.NewMachinedAt(cfg.MachinesDir)
}

// ProvideDriver provides the Cloud Hypervisor driver context
func ProvideDriver(cfg *config.Config, p *paths.Paths, names machinename.Service) *driver.Driver {
	return driver.New(driver.Config{
		StateDir:   cfg.StateDir,
		Privileged: cfg.Privileged,
	}, p, names)
}
