package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cloudhive/chdriver/lib/domain"
	"github.com/cloudhive/chdriver/lib/driver"
	"github.com/cloudhive/chdriver/lib/monitor"
	"github.com/cloudhive/chdriver/lib/otel"
	"golang.org/x/sync/errgroup"

	"github.com/cloudhive/chdriver/cmd/chdriverd/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
	slog.Info("main() exiting normally")
}

func run() error {
	// Load config early for OTel initialization
	cfg := config.Load()

	otelCfg := otel.Config{
		Enabled:           cfg.OtelEnabled,
		Endpoint:          cfg.OtelEndpoint,
		ServiceName:       cfg.OtelServiceName,
		ServiceInstanceID: cfg.OtelServiceInstanceID,
		Insecure:          cfg.OtelInsecure,
		Version:           cfg.Version,
		Env:               cfg.Env,
	}

	otelProvider, otelShutdown, err := otel.Init(context.Background(), otelCfg)
	if err != nil {
		// Log warning but don't fail - graceful degradation
		slog.Warn("failed to initialize OpenTelemetry, continuing without telemetry", "error", err)
	}
	if otelShutdown != nil {
		defer func() {
			slog.Info("shutting down OpenTelemetry")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				slog.Warn("error shutting down OpenTelemetry", "error", err)
			}
			slog.Info("OpenTelemetry shutdown complete")
		}()
	}

	// Initialize validation, monitor and driver metrics if OTel is enabled
	if otelProvider != nil && otelProvider.Meter != nil {
		if m, err := domain.NewMetrics(otelProvider.Meter); err == nil {
			domain.SetMetrics(m)
		}
		if m, err := monitor.NewMetrics(otelProvider.Meter); err == nil {
			monitor.SetMetrics(m)
		}
		if m, err := driver.NewMetrics(otelProvider.Meter); err == nil {
			driver.SetMetrics(m)
		}
	}

	// Set global OTel log handler for logger package
	if otelProvider != nil && otelProvider.LogHandler != nil {
		otel.SetGlobalLogHandler(otelProvider.LogHandler)
	}

	// Initialize app with wire
	app, cleanup, err := initializeApp()
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.Logger

	if cfg.OtelEnabled {
		logger.Info("OpenTelemetry enabled", "endpoint", cfg.OtelEndpoint, "service", cfg.OtelServiceName)
	}

	// Verify KVM access (required to run guests)
	if err := checkKVMAccess(); err != nil {
		return fmt.Errorf("KVM access check failed: %w\n\nEnsure:\n  1. KVM is enabled (check /dev/kvm exists)\n  2. User is in 'kvm' group: sudo usermod -aG kvm $USER\n  3. Log out and back in, or use: newgrp kvm", err)
	}
	logger.Info("KVM access verified")

	// Validate memory ceiling and refresh interval config
	var maxMemory datasize.ByteSize
	if err := maxMemory.UnmarshalText([]byte(app.Config.MaxDomainMemory)); err != nil {
		return fmt.Errorf("invalid MAX_DOMAIN_MEMORY %q: %w", app.Config.MaxDomainMemory, err)
	}
	refreshInterval, err := time.ParseDuration(app.Config.ThreadRefreshInterval)
	if err != nil {
		return fmt.Errorf("invalid THREAD_REFRESH_INTERVAL %q: %w", app.Config.ThreadRefreshInterval, err)
	}

	if err := os.MkdirAll(app.Paths.StateDir(), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	// Probe host capabilities up front so the first validation doesn't pay
	// for it, and so a broken sysfs shows up at startup.
	caps, err := app.Driver.Capabilities(app.Ctx, false)
	if err != nil {
		return fmt.Errorf("probe host capabilities: %w", err)
	}
	logger.Info("host capabilities probed",
		"hugepage_sizes", len(caps.PageSizes),
		"max_domain_memory", maxMemory.HumanReadable())

	grp, gctx := errgroup.WithContext(ctx)

	// Periodic vCPU thread reconciliation for running domains
	grp.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		logger.Info("thread refresh scheduler started", "interval", app.Config.ThreadRefreshInterval)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				for _, dom := range app.Driver.ListDomains() {
					dom.Lock()
					if dom.PID() > 0 {
						if err := app.Driver.RefreshThreadInfo(gctx, dom); err != nil {
							logger.Warn("thread refresh failed",
								"domain", dom.Def.Name, "error", err)
						}
					}
					dom.Unlock()
				}
			}
		}
	})

	grp.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return nil
	})

	err = grp.Wait()
	slog.Info("all goroutines finished")
	return err
}

// checkKVMAccess verifies KVM is available and the user has permission to use it
func checkKVMAccess() error {
	f, err := os.OpenFile("/dev/kvm", os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("/dev/kvm not found - KVM not enabled or not supported")
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied accessing /dev/kvm - user not in 'kvm' group")
		}
		return fmt.Errorf("cannot access /dev/kvm: %w", err)
	}
	f.Close()
	return nil
}
