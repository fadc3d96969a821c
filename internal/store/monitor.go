package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by Get-style methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Monitor is a single HTTP target under watch (spec.md §3, Monitor).
type Monitor struct {
	ID               int64
	Name             string
	URL              string
	Method           string
	IntervalSec      int32
	TimeoutMS        int32
	ExpectedStatuses []int32
	IsEnabled        bool
	CreatedAt        time.Time
}

const (
	minIntervalSec = 15
	maxIntervalSec = 3600
	minTimeoutMS   = 500
	maxTimeoutMS   = 30000
)

// ClampMonitorDefaults enforces invariant 6: interval_sec and timeout_ms
// are clamped to sane bounds rather than accepted verbatim, and
// ExpectedStatuses defaults to [200] when empty.
func ClampMonitorDefaults(m *Monitor) {
	if m.IntervalSec < minIntervalSec {
		m.IntervalSec = minIntervalSec
	}
	if m.IntervalSec > maxIntervalSec {
		m.IntervalSec = maxIntervalSec
	}
	if m.TimeoutMS < minTimeoutMS {
		m.TimeoutMS = minTimeoutMS
	}
	if m.TimeoutMS > maxTimeoutMS {
		m.TimeoutMS = maxTimeoutMS
	}
	if m.Method == "" {
		m.Method = "GET"
	}
	if len(m.ExpectedStatuses) == 0 {
		m.ExpectedStatuses = []int32{200}
	}
}

// CreateMonitor inserts a new monitor, applying ClampMonitorDefaults first.
func (s *Store) CreateMonitor(ctx context.Context, m *Monitor) error {
	ClampMonitorDefaults(m)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO monitors (name, url, method, interval_sec, timeout_ms, expected_statuses, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		m.Name, m.URL, m.Method, m.IntervalSec, m.TimeoutMS, m.ExpectedStatuses, m.IsEnabled,
	)

	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

// GetMonitor fetches a single monitor by ID.
func (s *Store) GetMonitor(ctx context.Context, id int64) (*Monitor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, url, method, interval_sec, timeout_ms, expected_statuses, is_enabled, created_at
		FROM monitors WHERE id = $1`, id)

	var m Monitor
	if err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Method, &m.IntervalSec, &m.TimeoutMS,
		&m.ExpectedStatuses, &m.IsEnabled, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return &m, nil
}

// ListMonitors returns every monitor ordered by ID, regardless of enabled state.
func (s *Store) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, url, method, interval_sec, timeout_ms, expected_statuses, is_enabled, created_at
		FROM monitors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()
	return scanMonitors(rows)
}

// ListEnabledMonitors returns only monitors with is_enabled = true, the set
// the Prober Core's pulse loop iterates each tick (spec.md §4.1).
func (s *Store) ListEnabledMonitors(ctx context.Context) ([]*Monitor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, url, method, interval_sec, timeout_ms, expected_statuses, is_enabled, created_at
		FROM monitors WHERE is_enabled = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled monitors: %w", err)
	}
	defer rows.Close()
	return scanMonitors(rows)
}

func scanMonitors(rows pgx.Rows) ([]*Monitor, error) {
	var out []*Monitor
	for rows.Next() {
		var m Monitor
		if err := rows.Scan(&m.ID, &m.Name, &m.URL, &m.Method, &m.IntervalSec, &m.TimeoutMS,
			&m.ExpectedStatuses, &m.IsEnabled, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// UpdateMonitor replaces a monitor's mutable fields in place.
func (s *Store) UpdateMonitor(ctx context.Context, m *Monitor) error {
	ClampMonitorDefaults(m)

	tag, err := s.pool.Exec(ctx, `
		UPDATE monitors
		SET name = $2, url = $3, method = $4, interval_sec = $5, timeout_ms = $6,
		    expected_statuses = $7, is_enabled = $8
		WHERE id = $1`,
		m.ID, m.Name, m.URL, m.Method, m.IntervalSec, m.TimeoutMS, m.ExpectedStatuses, m.IsEnabled,
	)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMonitor removes a monitor row. It never deletes observations or
// incidents; while any of them still reference the monitor, the foreign
// keys on checks and incidents make the delete fail with a database error.
func (s *Store) DeleteMonitor(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
