package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	IncidentStateOpen     = "open"
	IncidentStateResolved = "resolved"
)

// Incident is a continuous span of monitor unavailability (spec.md §3, Incident).
type Incident struct {
	ID        int64
	MonitorID int64
	OpenedAt  time.Time
	ClosedAt  *time.Time
	Reason    string
	State     string
}

// ErrIncidentAlreadyOpen is returned by OpenIncident when the partial
// unique index idx_incidents_one_open_per_monitor refuses a duplicate
// open incident for the same monitor (invariant 1).
var ErrIncidentAlreadyOpen = errors.New("store: monitor already has an open incident")

// OpenIncident creates a new open incident for a monitor. The database's
// partial unique index is the source of truth for invariant 1; a
// constraint violation here surfaces as ErrIncidentAlreadyOpen rather
// than a generic error so callers (internal/incident) can treat it as
// an expected race rather than a fault.
func (s *Store) OpenIncident(ctx context.Context, monitorID int64, openedAt time.Time, reason string) (*Incident, error) {
	inc := &Incident{
		MonitorID: monitorID,
		OpenedAt:  openedAt,
		Reason:    reason,
		State:     IncidentStateOpen,
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO incidents (monitor_id, opened_at, reason, state)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		inc.MonitorID, inc.OpenedAt, inc.Reason, inc.State,
	)
	if err := row.Scan(&inc.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrIncidentAlreadyOpen
		}
		return nil, fmt.Errorf("open incident: %w", err)
	}
	return inc, nil
}

// ResolveIncident closes an open incident.
func (s *Store) ResolveIncident(ctx context.Context, incidentID int64, closedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE incidents SET state = $2, closed_at = $3
		WHERE id = $1 AND state = $4`,
		incidentID, IncidentStateResolved, closedAt, IncidentStateOpen,
	)
	if err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOpenIncident returns the currently open incident for a monitor, if any.
func (s *Store) GetOpenIncident(ctx context.Context, monitorID int64) (*Incident, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, monitor_id, opened_at, closed_at, reason, state
		FROM incidents WHERE monitor_id = $1 AND state = $2`,
		monitorID, IncidentStateOpen)

	var inc Incident
	if err := scanIncident(row, &inc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get open incident: %w", err)
	}
	return &inc, nil
}

// ListOpenIncidents returns every currently open incident, across all
// monitors. The Prober Core calls this once at startup to reconstruct
// streak.Cache open-incident state after a restart (spec.md §9).
func (s *Store) ListOpenIncidents(ctx context.Context) ([]*Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, monitor_id, opened_at, closed_at, reason, state
		FROM incidents WHERE state = $1`, IncidentStateOpen)
	if err != nil {
		return nil, fmt.Errorf("list open incidents: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// ListIncidentsByMonitor returns a monitor's incident history, newest first.
func (s *Store) ListIncidentsByMonitor(ctx context.Context, monitorID int64, limit int) ([]*Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, monitor_id, opened_at, closed_at, reason, state
		FROM incidents WHERE monitor_id = $1
		ORDER BY opened_at DESC
		LIMIT $2`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents by monitor: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner, inc *Incident) error {
	return row.Scan(&inc.ID, &inc.MonitorID, &inc.OpenedAt, &inc.ClosedAt, &inc.Reason, &inc.State)
}

func scanIncidents(rows pgx.Rows) ([]*Incident, error) {
	var out []*Incident
	for rows.Next() {
		var inc Incident
		if err := scanIncident(rows, &inc); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, &inc)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
