// Command adminapi serves the CRUD/read-only HTTP API over monitors,
// observations, and incidents (SPEC_FULL.md §4.5).
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

	"github.com/upwatch/upwatch/internal/api"
	"github.com/upwatch/upwatch/internal/api/auth"
	"github.com/upwatch/upwatch/internal/bootstrap"
	"github.com/upwatch/upwatch/internal/config"
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

	logger := logging.Init(cfg.Logging).With("component", "adminapi")
	logger.Info("starting upwatch admin API", "host", cfg.Server.Host, "port", cfg.Server.Port)

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

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.GetJWTExpiry())
	if err != nil {
		log.Fatalf("auth service init failed: %v", err)
	}

	router := api.NewRouter(cfg, authService, logger, st)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down admin API")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
}
