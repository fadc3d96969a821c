// Package logging wires up upwatch's structured logger from configuration.
package logging

import (
	"log/slog"
	"os"

	"github.com/upwatch/upwatch/internal/config"
)

// Init builds and installs a slog.Logger as the process default, returning
// it for callers that want to pass it explicitly instead of relying on
// slog.Default().
func Init(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
