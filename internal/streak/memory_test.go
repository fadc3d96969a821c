package streak

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_DueRespectsInterval(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	now := time.Now()

	due, err := c.Due(ctx, 1, time.Minute, now)
	if err != nil || !due {
		t.Fatalf("expected first tick due, got due=%v err=%v", due, err)
	}

	due, err = c.Due(ctx, 1, time.Minute, now.Add(10*time.Second))
	if err != nil || due {
		t.Fatalf("expected tick within interval not due, got due=%v err=%v", due, err)
	}

	due, err = c.Due(ctx, 1, time.Minute, now.Add(90*time.Second))
	if err != nil || !due {
		t.Fatalf("expected tick past interval due, got due=%v err=%v", due, err)
	}
}

func TestMemoryCache_RecordPassResetsFailStreak(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.RecordFail(ctx, 1); err != nil {
			t.Fatal(err)
		}
	}

	passStreak, err := c.RecordPass(ctx, 1)
	if err != nil || passStreak != 1 {
		t.Fatalf("expected pass streak 1, got %d err=%v", passStreak, err)
	}

	failStreak, err := c.RecordFail(ctx, 1)
	if err != nil || failStreak != 1 {
		t.Fatalf("expected fail streak reset to 1, got %d err=%v", failStreak, err)
	}
}

func TestMemoryCache_OpenIncidentLifecycle(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok, err := c.GetOpenIncident(ctx, 1); err != nil || ok {
		t.Fatalf("expected no open incident initially, ok=%v err=%v", ok, err)
	}

	if err := c.SetOpenIncident(ctx, 1, 42); err != nil {
		t.Fatal(err)
	}

	id, ok, err := c.GetOpenIncident(ctx, 1)
	if err != nil || !ok || id != 42 {
		t.Fatalf("expected open incident 42, got id=%d ok=%v err=%v", id, ok, err)
	}

	if err := c.ClearOpenIncident(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.GetOpenIncident(ctx, 1); err != nil || ok {
		t.Fatalf("expected no open incident after clear, ok=%v err=%v", ok, err)
	}
}

func TestMemoryCache_LoadOpenIncidentsSeedsState(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.LoadOpenIncidents(ctx, map[int64]int64{5: 100, 6: 101}); err != nil {
		t.Fatal(err)
	}

	id, ok, err := c.GetOpenIncident(ctx, 5)
	if err != nil || !ok || id != 100 {
		t.Fatalf("expected loaded incident 100 for monitor 5, got id=%d ok=%v err=%v", id, ok, err)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordFail(ctx, 1)
			c.RecordPass(ctx, 1)
			c.Due(ctx, 1, time.Millisecond, time.Now())
		}()
	}
	wg.Wait()
}
