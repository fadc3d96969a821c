// Package bootstrap runs bounded-retry connection attempts to external
// dependencies (Postgres, Redis) before a binary enters its steady-state
// loop, replacing ad-hoc "retry at import time" with an explicit phase
// (SPEC_FULL.md §5).
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs fn with exponential backoff until it succeeds, ctx is
// canceled, or maxElapsed is exceeded. label is used only for logging.
func Retry(ctx context.Context, label string, maxElapsed time.Duration, logger *slog.Logger, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil {
			logger.Warn("bootstrap attempt failed", "target", label, "attempt", attempt, "error", err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	if err != nil {
		return err
	}

	logger.Info("bootstrap succeeded", "target", label, "attempts", attempt)
	return nil
}
