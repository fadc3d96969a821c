// Package streak tracks per-monitor consecutive pass/fail counts and the
// id of each monitor's currently open incident, so the incident state
// machine (internal/incident) never has to scan observation history to
// decide whether a threshold has been crossed (spec.md §4.2).
package streak

import (
	"context"
	"time"
)

// Cache is the Cadence & Streak Cache interface. Two implementations are
// provided: MemoryCache (default, single-process) and RedisCache (shared
// across multiple prober replicas, grounded on the original worker's
// Redis key scheme — see original_source/services/monitor/worker.py).
type Cache interface {
	// Due reports whether a monitor is due for a probe at now, given its
	// interval, and if so, atomically marks it as started so a second
	// concurrent tick doesn't double-fire while the first probe is in
	// flight (SPEC_FULL.md §9, mark_started durability).
	Due(ctx context.Context, monitorID int64, interval time.Duration, now time.Time) (bool, error)

	// RecordPass resets the fail streak to zero and increments the pass
	// streak, returning the new pass streak.
	RecordPass(ctx context.Context, monitorID int64) (passStreak int, err error)

	// RecordFail resets the pass streak to zero and increments the fail
	// streak, returning the new fail streak.
	RecordFail(ctx context.Context, monitorID int64) (failStreak int, err error)

	// GetOpenIncident returns the open incident ID for a monitor, or
	// (0, false) if none is tracked.
	GetOpenIncident(ctx context.Context, monitorID int64) (incidentID int64, ok bool, err error)

	// SetOpenIncident records the ID of a newly opened incident.
	SetOpenIncident(ctx context.Context, monitorID int64, incidentID int64) error

	// ClearOpenIncident removes the open-incident marker after resolution.
	ClearOpenIncident(ctx context.Context, monitorID int64) error

	// LoadOpenIncidents seeds the cache's open-incident markers from a
	// durable snapshot (typically store.ListOpenIncidents), used once at
	// prober startup to recover state after a restart.
	LoadOpenIncidents(ctx context.Context, openByMonitor map[int64]int64) error
}
