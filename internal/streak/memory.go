package streak

import (
	"context"
	"sync"
	"time"
)

type monitorState struct {
	lastStarted   time.Time
	passStreak    int
	failStreak    int
	openIncident  int64
	hasOpenIncdnt bool
}

// MemoryCache is an in-process Cache, the default backend when no Redis
// address is configured. It is correct for a single prober replica; see
// RedisCache for multi-replica deployments.
type MemoryCache struct {
	mu       sync.Mutex
	monitors map[int64]*monitorState
}

// NewMemoryCache builds an empty in-process streak cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{monitors: make(map[int64]*monitorState)}
}

func (c *MemoryCache) state(id int64) *monitorState {
	st, ok := c.monitors[id]
	if !ok {
		st = &monitorState{}
		c.monitors[id] = st
	}
	return st
}

func (c *MemoryCache) Due(_ context.Context, monitorID int64, interval time.Duration, now time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	if !st.lastStarted.IsZero() && now.Sub(st.lastStarted) < interval {
		return false, nil
	}
	st.lastStarted = now
	return true, nil
}

func (c *MemoryCache) RecordPass(_ context.Context, monitorID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	st.failStreak = 0
	st.passStreak++
	return st.passStreak, nil
}

func (c *MemoryCache) RecordFail(_ context.Context, monitorID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	st.passStreak = 0
	st.failStreak++
	return st.failStreak, nil
}

func (c *MemoryCache) GetOpenIncident(_ context.Context, monitorID int64) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	return st.openIncident, st.hasOpenIncdnt, nil
}

func (c *MemoryCache) SetOpenIncident(_ context.Context, monitorID int64, incidentID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	st.openIncident = incidentID
	st.hasOpenIncdnt = true
	return nil
}

func (c *MemoryCache) ClearOpenIncident(_ context.Context, monitorID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(monitorID)
	st.openIncident = 0
	st.hasOpenIncdnt = false
	return nil
}

func (c *MemoryCache) LoadOpenIncidents(_ context.Context, openByMonitor map[int64]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for monitorID, incidentID := range openByMonitor {
		st := c.state(monitorID)
		st.openIncident = incidentID
		st.hasOpenIncdnt = true
	}
	return nil
}
