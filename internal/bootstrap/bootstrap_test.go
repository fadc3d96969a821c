package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "test-target", 5*time.Second, nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_GivesUpAfterMaxElapsed(t *testing.T) {
	err := Retry(context.Background(), "test-target", 30*time.Millisecond, nil, func(context.Context) error {
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after max elapsed time")
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, "test-target", time.Second, nil, func(context.Context) error {
		return errors.New("fails")
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
