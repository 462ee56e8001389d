package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/deusflow/citynews/internal/app"
	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/logger"
	"github.com/deusflow/citynews/internal/metrics"
	"github.com/deusflow/citynews/internal/scheduler"
)

const heartbeatInterval = 15 * time.Minute

func main() {
	once := flag.Bool("once", false, "run every tenant once and exit")
	only := flag.String("tenant", "", "with -once, run only this tenant")
	flag.Parse()

	logger.Init()
	log := logger.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Error("config: invalid configuration", "err", err)
		os.Exit(1)
	}

	tenants, err := config.LoadTenants(cfg.TenantsConfigPath)
	if err != nil {
		log.Error("config: load tenants", "path", cfg.TenantsConfigPath, "err", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, tenants, log)
	if err != nil {
		log.Error("app: init", "err", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		runOnce(ctx, application, *only, log)
		return
	}

	serve(ctx, cfg, application, log)
}

func runOnce(ctx context.Context, application *app.Application, only string, log *slog.Logger) {
	if only == "" {
		application.RunAll(ctx)
		return
	}
	if err := application.RunTenant(ctx, only); err != nil {
		log.Error("run failed", "tenant", only, "err", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, application *app.Application, log *slog.Logger) {
	var wg sync.WaitGroup

	sched := scheduler.New(logger.Component("scheduler"))
	for _, t := range application.Tenants() {
		key := t.Key
		err := sched.AddTenant(t, cfg.ScheduleSlots, func() {
			if err := application.RunTenant(ctx, key); err != nil {
				log.Error("scheduled run failed", "tenant", key, "err", err)
			}
		})
		if err != nil {
			log.Error("scheduler: add tenant", "tenant", key, "err", err)
			os.Exit(1)
		}
		log.Info("next run", "tenant", key, "at", sched.NextRun(key, time.Now()).Format(time.RFC3339))
	}
	sched.Start()

	var srv *http.Server
	if cfg.EnableHTTPMonitoring {
		srv = &http.Server{
			Addr:         ":" + cfg.MonitoringPort,
			Handler:      newRouter(ctx, application, logger.Component("http")),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("starting monitoring server", "port", cfg.MonitoringPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("monitoring server error", "err", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeat(ctx)
	}()

	<-ctx.Done()
	log.Info("received shutdown signal")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := sched.Stop(stopCtx); err != nil {
		log.Warn("scheduler stop timed out", "err", err)
	}
	if srv != nil {
		if err := srv.Shutdown(stopCtx); err != nil {
			log.Warn("monitoring server shutdown", "err", err)
		}
	}

	wg.Wait()
	log.Info("shutdown complete")
}

func heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := metrics.Global.GetStats()
			logger.Info("heartbeat",
				"healthy", metrics.Global.Healthy(),
				"entries_admitted", stats["entries_admitted"],
				"messages_sent", stats["messages_sent"])
		}
	}
}
