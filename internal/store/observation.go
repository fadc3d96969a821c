package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Observation is a single probe result (spec.md §3, Observation).
type Observation struct {
	ID          int64
	MonitorID   int64
	TS          time.Time
	StatusCode  *int32
	LatencyMS   *int32
	OK          bool
	ErrorReason *string
}

// InsertObservation records one probe result. ErrorReason arrives
// already truncated to 500 bytes by internal/prober at construction
// time (invariant 7: truncation happens once and is never re-applied
// downstream), so this does no truncation of its own.
func (s *Store) InsertObservation(ctx context.Context, o *Observation) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO checks (monitor_id, ts, status_code, latency_ms, ok, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.MonitorID, o.TS, o.StatusCode, o.LatencyMS, o.OK, o.ErrorReason,
	)
	if err := row.Scan(&o.ID); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// ListRecentObservations returns the most recent observations for a
// monitor, newest first, bounded by limit.
func (s *Store) ListRecentObservations(ctx context.Context, monitorID int64, limit int) ([]*Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, monitor_id, ts, status_code, latency_ms, ok, error_reason
		FROM checks WHERE monitor_id = $1
		ORDER BY ts DESC
		LIMIT $2`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.MonitorID, &o.TS, &o.StatusCode, &o.LatencyMS, &o.OK, &o.ErrorReason); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// UptimeWindow reports how many observations within the trailing window
// were OK, as counts and as a percentage (0-100). This supplements the distilled spec (see
// SPEC_FULL.md §4.5) with the aggregate the original dashboard computed
// client-side.
type UptimeWindow struct {
	TotalChecks int64
	OKChecks    int64
	UptimePct   float64
}

// GetUptimeWindow computes uptime percentage over the trailing `since` window.
func (s *Store) GetUptimeWindow(ctx context.Context, monitorID int64, since time.Time) (*UptimeWindow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE ok)
		FROM checks
		WHERE monitor_id = $1 AND ts >= $2`, monitorID, since)

	var w UptimeWindow
	if err := row.Scan(&w.TotalChecks, &w.OKChecks); err != nil {
		if err == pgx.ErrNoRows {
			return &w, nil
		}
		return nil, fmt.Errorf("uptime window: %w", err)
	}

	if w.TotalChecks > 0 {
		w.UptimePct = float64(w.OKChecks) / float64(w.TotalChecks) * 100
	}
	return &w, nil
}
