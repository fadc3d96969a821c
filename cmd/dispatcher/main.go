// Command dispatcher runs the alert dispatcher as its own process,
// consuming alert events from a Redis-backed queue and posting them to
// the configured webhook (SPEC_FULL.md §4.6). This binary only makes
// sense when the prober is configured with a Redis address: an
// in-process MemoryQueue is invisible to any process but the one that
// created it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/upwatch/upwatch/internal/alertqueue"
	"github.com/upwatch/upwatch/internal/bootstrap"
	"github.com/upwatch/upwatch/internal/config"
	"github.com/upwatch/upwatch/internal/dispatcher"
	"github.com/upwatch/upwatch/internal/logging"
	"github.com/upwatch/upwatch/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Redis.Addr == "" {
		log.Fatal("redis.addr must be configured to run the dispatcher as a standalone process")
	}

	logger := logging.Init(cfg.Logging).With("component", "dispatcher")
	logger.Info("starting upwatch dispatcher", "redis_addr", cfg.Redis.Addr)

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

	rdb := redis.NewClient(&redis.Options{
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

	queue := alertqueue.NewRedisQueue(rdb)
	d := dispatcher.New(queue, st, cfg.Dispatch.WebhookURL, cfg.Dispatch.GetRequestTimeout(), logger)

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dispatcher")
	cancel()
	<-done
}
