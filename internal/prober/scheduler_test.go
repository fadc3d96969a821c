package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/upwatch/upwatch/internal/incident"
	"github.com/upwatch/upwatch/internal/store"
	"github.com/upwatch/upwatch/internal/streak"
)

type fakeStore struct {
	mu       sync.Mutex
	monitors []*store.Monitor
	observed []*store.Observation
}

func (f *fakeStore) ListEnabledMonitors(context.Context) ([]*store.Monitor, error) {
	return f.monitors, nil
}

func (f *fakeStore) InsertObservation(_ context.Context, o *store.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, o)
	return nil
}

type fakeObserver struct {
	count int32
}

func (f *fakeObserver) Observe(context.Context, incident.Observation) error {
	atomic.AddInt32(&f.count, 1)
	return nil
}

func TestScheduler_Tick_ProbesDueMonitorsOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := &fakeStore{monitors: []*store.Monitor{
		{ID: 1, URL: srv.URL, Method: http.MethodGet, IntervalSec: 60, TimeoutMS: 1000, ExpectedStatuses: []int32{200}},
		{ID: 2, URL: srv.URL, Method: http.MethodGet, IntervalSec: 60, TimeoutMS: 1000, ExpectedStatuses: []int32{200}},
	}}
	cache := streak.NewMemoryCache()
	obs := &fakeObserver{}

	sched := New(st, cache, obs, Config{ProbeWorkers: 4, DefaultInterval: 60 * time.Second, DefaultTimeout: time.Second}, nil)

	now := time.Now()
	sched.Tick(context.Background(), now)

	if len(st.observed) != 2 {
		t.Fatalf("expected 2 observations on first tick, got %d", len(st.observed))
	}

	// Second tick immediately after: neither monitor is due yet.
	sched.Tick(context.Background(), now.Add(time.Second))
	if len(st.observed) != 2 {
		t.Fatalf("expected no new observations before interval elapses, got %d", len(st.observed))
	}

	// Third tick past the interval: both due again.
	sched.Tick(context.Background(), now.Add(61*time.Second))
	if len(st.observed) != 4 {
		t.Fatalf("expected 4 total observations after interval elapses, got %d", len(st.observed))
	}

	if atomic.LoadInt32(&obs.count) != 4 {
		t.Errorf("expected incident machine observed 4 times, got %d", obs.count)
	}
}

func TestScheduler_Tick_OneMonitorFailureDoesNotStopOthers(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	st := &fakeStore{monitors: []*store.Monitor{
		{ID: 1, URL: "http://127.0.0.1:1", Method: http.MethodGet, IntervalSec: 60, TimeoutMS: 200, ExpectedStatuses: []int32{200}},
		{ID: 2, URL: okSrv.URL, Method: http.MethodGet, IntervalSec: 60, TimeoutMS: 1000, ExpectedStatuses: []int32{200}},
	}}
	cache := streak.NewMemoryCache()
	obs := &fakeObserver{}

	sched := New(st, cache, obs, Config{ProbeWorkers: 4, DefaultInterval: 60 * time.Second, DefaultTimeout: time.Second}, nil)
	sched.Tick(context.Background(), time.Now())

	if len(st.observed) != 2 {
		t.Fatalf("expected both monitors observed despite one connection failure, got %d", len(st.observed))
	}
}

func TestScheduler_Tick_BoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var monitors []*store.Monitor
	for i := int64(1); i <= 10; i++ {
		monitors = append(monitors, &store.Monitor{ID: i, URL: srv.URL, Method: http.MethodGet, IntervalSec: 60, TimeoutMS: 1000, ExpectedStatuses: []int32{200}})
	}

	st := &fakeStore{monitors: monitors}
	cache := streak.NewMemoryCache()
	obs := &fakeObserver{}

	sched := New(st, cache, obs, Config{ProbeWorkers: 3, DefaultInterval: 60 * time.Second, DefaultTimeout: time.Second}, nil)
	sched.Tick(context.Background(), time.Now())

	if atomic.LoadInt32(&maxInFlight) > 3 {
		t.Errorf("expected at most 3 concurrent probes, saw %d", maxInFlight)
	}
}
