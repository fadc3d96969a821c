// Package incident implements the threshold/hysteresis state machine
// that turns a stream of probe observations into open and resolved
// incidents (spec.md §4.3). It is grounded directly on the counter
// logic in original_source/services/monitor/worker.py: a fail streak
// that reaches FailThreshold opens an incident; a pass streak on an
// open incident that reaches RecoverThreshold resolves it.
package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/upwatch/upwatch/internal/alertqueue"
	"github.com/upwatch/upwatch/internal/metrics"
	"github.com/upwatch/upwatch/internal/store"
	"github.com/upwatch/upwatch/internal/streak"
)

// Store is the subset of internal/store's repository methods the
// incident machine needs, named here so tests can supply a fake
// without touching Postgres.
type Store interface {
	OpenIncident(ctx context.Context, monitorID int64, openedAt time.Time, reason string) (*store.Incident, error)
	ResolveIncident(ctx context.Context, incidentID int64, closedAt time.Time) error
}

// Observation is the minimal shape the machine needs from a completed
// probe; internal/prober constructs one from its own result type.
type Observation struct {
	MonitorID   int64
	TS          time.Time
	OK          bool
	StatusCode  *int
	ErrorReason string
}

// Machine owns the fail/recover thresholds and coordinates the streak
// cache, the incident store, and the alert queue on every observation.
type Machine struct {
	store            Store
	cache            streak.Cache
	queue            alertqueue.Queue
	failThreshold    int
	recoverThreshold int
	logger           *slog.Logger
}

// New builds an incident Machine. failThreshold and recoverThreshold
// come from config.IncidentConfig.
func New(st Store, cache streak.Cache, queue alertqueue.Queue, failThreshold, recoverThreshold int, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:            st,
		cache:            cache,
		queue:            queue,
		failThreshold:    failThreshold,
		recoverThreshold: recoverThreshold,
		logger:           logger,
	}
}

// Observe is the machine's single entry point: every probe result,
// pass or fail, flows through here exactly once (spec.md §4.3).
func (m *Machine) Observe(ctx context.Context, obs Observation) error {
	if obs.OK {
		return m.observePass(ctx, obs)
	}
	return m.observeFail(ctx, obs)
}

func (m *Machine) observePass(ctx context.Context, obs Observation) error {
	passStreak, err := m.cache.RecordPass(ctx, obs.MonitorID)
	if err != nil {
		return fmt.Errorf("record pass streak: %w", err)
	}

	incidentID, open, err := m.cache.GetOpenIncident(ctx, obs.MonitorID)
	if err != nil {
		return fmt.Errorf("get open incident: %w", err)
	}
	if !open || passStreak < m.recoverThreshold {
		return nil
	}

	if err := m.store.ResolveIncident(ctx, incidentID, obs.TS); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already resolved by a concurrent tick or manually; still
			// clear the cache marker so we don't keep trying.
			m.logger.Warn("incident already resolved", "monitor_id", obs.MonitorID, "incident_id", incidentID)
		} else {
			return fmt.Errorf("resolve incident: %w", err)
		}
	}

	if err := m.cache.ClearOpenIncident(ctx, obs.MonitorID); err != nil {
		return fmt.Errorf("clear open incident: %w", err)
	}

	m.logger.Info("incident resolved", "monitor_id", obs.MonitorID, "incident_id", incidentID, "pass_streak", passStreak)
	metrics.OpenIncidents.Dec()
	metrics.AlertsEmitted.WithLabelValues(string(alertqueue.KindResolved)).Inc()

	return m.queue.Emit(ctx, alertqueue.Event{
		MonitorID:  obs.MonitorID,
		IncidentID: incidentID,
		Kind:       alertqueue.KindResolved,
		At:         obs.TS,
	})
}

func (m *Machine) observeFail(ctx context.Context, obs Observation) error {
	failStreak, err := m.cache.RecordFail(ctx, obs.MonitorID)
	if err != nil {
		return fmt.Errorf("record fail streak: %w", err)
	}

	if failStreak < m.failThreshold {
		return nil
	}

	_, open, err := m.cache.GetOpenIncident(ctx, obs.MonitorID)
	if err != nil {
		return fmt.Errorf("get open incident: %w", err)
	}
	if open {
		// Invariant 1: at most one open incident per monitor.
		return nil
	}

	reason := obs.ErrorReason
	if reason == "" {
		if obs.StatusCode != nil {
			reason = fmt.Sprintf("HTTP %d", *obs.StatusCode)
		} else {
			reason = "probe failed"
		}
	}

	inc, err := m.store.OpenIncident(ctx, obs.MonitorID, obs.TS, reason)
	if err != nil {
		if errors.Is(err, store.ErrIncidentAlreadyOpen) {
			// Lost a race with another writer; the DB is the source of
			// truth for invariant 1, so just sync the cache and move on.
			m.logger.Warn("incident already open per database", "monitor_id", obs.MonitorID)
			if g, ok := m.store.(interface {
				GetOpenIncident(ctx context.Context, monitorID int64) (*store.Incident, error)
			}); ok {
				if existing, gerr := g.GetOpenIncident(ctx, obs.MonitorID); gerr == nil {
					if err := m.cache.SetOpenIncident(ctx, obs.MonitorID, existing.ID); err != nil {
						return fmt.Errorf("set open incident: %w", err)
					}
				}
			}
			return nil
		}
		return fmt.Errorf("open incident: %w", err)
	}

	if err := m.cache.SetOpenIncident(ctx, obs.MonitorID, inc.ID); err != nil {
		return fmt.Errorf("set open incident: %w", err)
	}

	m.logger.Info("incident opened", "monitor_id", obs.MonitorID, "incident_id", inc.ID, "fail_streak", failStreak, "reason", reason)
	metrics.OpenIncidents.Inc()
	metrics.AlertsEmitted.WithLabelValues(string(alertqueue.KindOpened)).Inc()

	return m.queue.Emit(ctx, alertqueue.Event{
		MonitorID:  obs.MonitorID,
		IncidentID: inc.ID,
		Kind:       alertqueue.KindOpened,
		Reason:     reason,
		At:         obs.TS,
	})
}
