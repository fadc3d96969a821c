package store

import (
	"context"
	"fmt"
	"time"
)

const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// Notification records one alert dispatch attempt (spec.md §4.6 / §6).
type Notification struct {
	ID         int64
	IncidentID *int64
	Channel    string
	SentAt     time.Time
	Status     string
	Detail     string
}

// InsertNotification records the outcome of a dispatch attempt, whether
// it succeeded or failed. The dispatcher never retries; this row is the
// only durable record of what happened (SPEC_FULL.md §4.6).
func (s *Store) InsertNotification(ctx context.Context, n *Notification) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (incident_id, channel, sent_at, status, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		n.IncidentID, n.Channel, n.SentAt, n.Status, n.Detail,
	)
	if err := row.Scan(&n.ID); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
