// Command prober runs the scheduler and incident state machine: the
// pulse loop that probes due monitors, classifies results, and opens or
// resolves incidents (SPEC_FULL.md §4.1-§4.3, this repo's reason for
// existing).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/upwatch/upwatch/internal/alertqueue"
	"github.com/upwatch/upwatch/internal/bootstrap"
	"github.com/upwatch/upwatch/internal/config"
	"github.com/upwatch/upwatch/internal/dispatcher"
	"github.com/upwatch/upwatch/internal/incident"
	"github.com/upwatch/upwatch/internal/logging"
	"github.com/upwatch/upwatch/internal/prober"
	"github.com/upwatch/upwatch/internal/store"
	"github.com/upwatch/upwatch/internal/streak"
)

// inProcessQueueCapacity bounds the in-memory alert queue used when no
// Redis is configured, so a stalled dispatcher can never block the
// incident state machine (spec.md §4.4).
const inProcessQueueCapacity = 256

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := logging.Init(cfg.Logging).With("component", "prober")
	logger.Info("starting upwatch prober", "workers", cfg.Scheduler.ProbeWorkers, "pulse_ms", cfg.Scheduler.PulseIntervalMS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st *store.Store
	if err := bootstrap.Retry(ctx, "postgres", 2*time.Minute, logger, func(ctx context.Context) error {
		opened, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		st = opened
		return nil
	}); err != nil {
		log.Fatalf("database bootstrap failed: %v", err)
	}
	defer st.Close()

	if err := store.RunMigrations(ctx, cfg.Database); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	var cache streak.Cache
	var queue alertqueue.Queue
	var rdb *redis.Client
	runInProcessDispatcher := true

	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := bootstrap.Retry(ctx, "redis", 2*time.Minute, logger, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}); err != nil {
			log.Fatalf("redis bootstrap failed: %v", err)
		}
		defer rdb.Close()

		cache = streak.NewRedisCache(rdb)
		queue = alertqueue.NewRedisQueue(rdb)
		// A separate cmd/dispatcher process can consume this Redis list,
		// so the in-process fallback dispatcher below is unnecessary and
		// would compete with it, BRPOPing events off the same list.
		runInProcessDispatcher = false
		logger.Info("using redis-backed streak cache and alert queue", "addr", cfg.Redis.Addr)
	} else {
		cache = streak.NewMemoryCache()
		queue = alertqueue.NewMemoryQueue(inProcessQueueCapacity)
		logger.Info("using in-process streak cache and alert queue (single replica only)")
	}

	openIncidents, err := st.ListOpenIncidents(ctx)
	if err != nil {
		log.Fatalf("list open incidents failed: %v", err)
	}
	openByMonitor := make(map[int64]int64, len(openIncidents))
	for _, inc := range openIncidents {
		openByMonitor[inc.MonitorID] = inc.ID
	}
	if err := cache.LoadOpenIncidents(ctx, openByMonitor); err != nil {
		log.Fatalf("seed streak cache with open incidents failed: %v", err)
	}
	logger.Info("restart state reconstructed", "open_incidents", len(openByMonitor))

	machine := incident.New(st, cache, queue, cfg.Incident.FailThreshold, cfg.Incident.RecoverThreshold, logger)

	scheduler := prober.New(st, cache, machine, prober.Config{
		PulseInterval:   cfg.Scheduler.GetPulseInterval(),
		ProbeWorkers:    cfg.Scheduler.ProbeWorkers,
		DefaultInterval: cfg.Scheduler.GetDefaultInterval(),
		DefaultTimeout:  cfg.Scheduler.GetDefaultTimeout(),
	}, logger)

	go scheduler.Run(ctx, cfg.Scheduler.GetPulseInterval())

	if runInProcessDispatcher {
		d := dispatcher.New(queue, st, cfg.Dispatch.WebhookURL, cfg.Dispatch.GetRequestTimeout(), logger)
		go d.Run(ctx)
		logger.Info("running dispatcher in-process (no redis configured)")
	}

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Scheduler.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("metrics server listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down prober")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server forced to shutdown", "error", err)
	}
}
