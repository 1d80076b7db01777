package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/velomail/pluginkit/pkg/api"
	"github.com/velomail/pluginkit/pkg/config"
	"github.com/velomail/pluginkit/pkg/events"
	"github.com/velomail/pluginkit/pkg/monitor"
	"github.com/velomail/pluginkit/pkg/observability"
	"github.com/velomail/pluginkit/pkg/registry"
	"github.com/velomail/pluginkit/pkg/resolver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger("info", os.Stderr).WithError(err).Fatal("failed to load configuration")
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)
	log.WithField("plugin_root", cfg.Registry.PluginRoot).Info("starting pluginkitd")

	var obs *observability.Metrics
	var promRegistry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		obs = observability.NewMetrics(promRegistry)
	}

	bus := events.NewBus(64)

	remotes := make([]registry.RemoteSource, 0, len(cfg.Registry.RemoteURLs))
	for _, url := range cfg.Registry.RemoteURLs {
		remotes = append(remotes, registry.NewHTTPSource(url, cfg.Registry.RemoteTimeout))
	}

	reg := registry.New(registry.Config{
		PluginRoot: cfg.Registry.PluginRoot,
		CacheTTL:   cfg.Registry.CacheTTL,
	}, nil, remotes, bus, obs, log)

	ctx := context.Background()
	if err := reg.Refresh(ctx); err != nil {
		log.WithError(err).Error("initial registry refresh failed")
	}

	if cfg.Registry.WatchPluginRoot {
		if err := reg.WatchPluginRoot(ctx); err != nil {
			log.WithError(err).Warn("plugin root watcher unavailable")
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Registry.RefreshSchedule, func() {
		if err := reg.Refresh(ctx); err != nil {
			log.WithError(err).Error("scheduled registry refresh failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid refresh schedule")
	}
	scheduler.Start()

	mon := monitor.New(monitor.Config{
		SweepInterval:           cfg.Monitor.SweepInterval,
		RetentionSweepInterval:  cfg.Monitor.RetentionSweepInterval,
		AlertRetention:          cfg.Monitor.AlertRetention,
		ErrorRateThreshold:      cfg.Monitor.ErrorRateThreshold,
		ResponseTimeThresholdMs: cfg.Monitor.ResponseTimeThresholdMs,
		MemoryThresholdBytes:    cfg.Monitor.MemoryThresholdBytes,
		CPUThreshold:            cfg.Monitor.CPUThreshold,
		IdleThreshold:           cfg.Monitor.IdleThreshold,
		PerformanceSampleCap:    cfg.Monitor.PerformanceSampleCap,
		ErrorSampleCap:          cfg.Monitor.ErrorSampleCap,
	}, bus, obs, log)
	mon.Start()

	handlers := api.NewHandlers(reg, resolver.New(log), mon, log)
	router := api.NewRouter(handlers, promRegistry)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("plugin API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sm := observability.NewShutdownManager(log, server, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(context.Context) error {
		scheduler.Stop()
		return nil
	})
	sm.RegisterShutdownFunc(func(context.Context) error {
		return reg.Close()
	})
	sm.RegisterShutdownFunc(func(context.Context) error {
		mon.Shutdown()
		return nil
	})
	sm.RegisterShutdownFunc(func(context.Context) error {
		bus.Close()
		return nil
	})

	if err := sm.WaitForShutdown(); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}
