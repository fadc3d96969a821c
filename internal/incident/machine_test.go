package incident

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/upwatch/upwatch/internal/alertqueue"
	"github.com/upwatch/upwatch/internal/store"
	"github.com/upwatch/upwatch/internal/streak"
)

// fakeStore is an in-memory stand-in for internal/store, letting the
// state machine be tested without Postgres.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	open   map[int64]*store.Incident // by monitor id
	all    []*store.Incident
}

func newFakeStore() *fakeStore {
	return &fakeStore{open: make(map[int64]*store.Incident)}
}

func (f *fakeStore) OpenIncident(_ context.Context, monitorID int64, openedAt time.Time, reason string) (*store.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.open[monitorID]; ok {
		return nil, store.ErrIncidentAlreadyOpen
	}

	f.nextID++
	inc := &store.Incident{ID: f.nextID, MonitorID: monitorID, OpenedAt: openedAt, Reason: reason, State: store.IncidentStateOpen}
	f.open[monitorID] = inc
	f.all = append(f.all, inc)
	return inc, nil
}

func (f *fakeStore) ResolveIncident(_ context.Context, incidentID int64, closedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for monitorID, inc := range f.open {
		if inc.ID == incidentID {
			inc.State = store.IncidentStateResolved
			inc.ClosedAt = &closedAt
			delete(f.open, monitorID)
			return nil
		}
	}
	return store.ErrNotFound
}

func newTestMachine(failThreshold, recoverThreshold int) (*Machine, *fakeStore, *alertqueue.MemoryQueue) {
	st := newFakeStore()
	cache := streak.NewMemoryCache()
	queue := alertqueue.NewMemoryQueue(16)
	m := New(st, cache, queue, failThreshold, recoverThreshold, nil)
	return m, st, queue
}

func obsAt(monitorID int64, ok bool, t time.Time) Observation {
	return Observation{MonitorID: monitorID, TS: t, OK: ok, ErrorReason: "connection refused"}
}

// P1/scenario 1: fail streak below threshold opens nothing.
func TestObserve_BelowFailThreshold_NoIncident(t *testing.T) {
	m, st, _ := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if err := m.Observe(ctx, obsAt(1, false, now)); err != nil {
			t.Fatal(err)
		}
	}

	if len(st.open) != 0 {
		t.Errorf("expected no open incident below threshold, got %d", len(st.open))
	}
}

// P2/scenario 2: fail streak reaching threshold opens exactly one incident.
func TestObserve_AtFailThreshold_OpensIncident(t *testing.T) {
	m, st, queue := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := m.Observe(ctx, obsAt(1, false, now)); err != nil {
			t.Fatal(err)
		}
	}

	if len(st.open) != 1 {
		t.Fatalf("expected exactly one open incident, got %d", len(st.open))
	}

	ev, err := queue.Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != alertqueue.KindOpened || ev.MonitorID != 1 {
		t.Errorf("expected opened event for monitor 1, got %+v", ev)
	}
}

// P3: further fails after the incident is already open do not open a second one.
func TestObserve_AdditionalFails_DoNotDuplicateIncident(t *testing.T) {
	m, st, _ := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 6; i++ {
		if err := m.Observe(ctx, obsAt(1, false, now)); err != nil {
			t.Fatal(err)
		}
	}

	if len(st.open) != 1 {
		t.Fatalf("expected exactly one open incident after repeated fails, got %d", len(st.open))
	}
}

// P4/scenario 3: a single pass below recover threshold does not resolve.
func TestObserve_SinglePassBelowRecoverThreshold_StaysOpen(t *testing.T) {
	m, st, _ := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		m.Observe(ctx, obsAt(1, false, now))
	}
	m.Observe(ctx, obsAt(1, true, now))

	if len(st.open) != 1 {
		t.Fatalf("expected incident to remain open, got %d open", len(st.open))
	}
}

// P5/scenario 4: pass streak reaching recover threshold resolves the incident.
func TestObserve_AtRecoverThreshold_ResolvesIncident(t *testing.T) {
	m, st, queue := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		m.Observe(ctx, obsAt(1, false, now))
	}
	queue.Receive(ctx) // drain the "opened" event

	m.Observe(ctx, obsAt(1, true, now))
	m.Observe(ctx, obsAt(1, true, now))

	if len(st.open) != 0 {
		t.Fatalf("expected incident resolved, got %d still open", len(st.open))
	}

	ev, err := queue.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != alertqueue.KindResolved {
		t.Errorf("expected resolved event, got %+v", ev)
	}
}

// P6: a fail breaking a pass streak resets progress toward recovery.
func TestObserve_FailInterruptsRecovery(t *testing.T) {
	m, st, queue := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		m.Observe(ctx, obsAt(1, false, now))
	}
	queue.Receive(ctx)

	m.Observe(ctx, obsAt(1, true, now)) // pass streak 1, not yet enough
	m.Observe(ctx, obsAt(1, false, now)) // breaks it
	m.Observe(ctx, obsAt(1, true, now)) // pass streak 1 again

	if len(st.open) != 1 {
		t.Fatalf("expected incident still open after interrupted recovery, got %d open", len(st.open))
	}
}

// P7/scenario 5: independent monitors don't share streak state.
func TestObserve_MonitorsAreIndependent(t *testing.T) {
	m, st, _ := newTestMachine(3, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		m.Observe(ctx, obsAt(1, false, now))
	}
	m.Observe(ctx, obsAt(2, false, now))
	m.Observe(ctx, obsAt(2, false, now))

	if len(st.open) != 1 {
		t.Fatalf("expected only monitor 1's incident open, got %d", len(st.open))
	}
	if _, ok := st.open[1]; !ok {
		t.Error("expected monitor 1 to have an open incident")
	}
}

// scenario 6: a reopened incident after resolution gets a fresh incident id.
func TestObserve_ReopenAfterResolve_GetsNewIncidentID(t *testing.T) {
	m, st, queue := newTestMachine(2, 1)
	ctx := context.Background()
	now := time.Now()

	m.Observe(ctx, obsAt(1, false, now))
	m.Observe(ctx, obsAt(1, false, now))
	queue.Receive(ctx)
	firstID := st.all[0].ID

	m.Observe(ctx, obsAt(1, true, now))
	queue.Receive(ctx)

	m.Observe(ctx, obsAt(1, false, now))
	m.Observe(ctx, obsAt(1, false, now))
	queue.Receive(ctx)

	if len(st.all) != 2 {
		t.Fatalf("expected two distinct incidents recorded, got %d", len(st.all))
	}
	if st.all[1].ID == firstID {
		t.Error("expected the reopened incident to get a new id")
	}
}
