// Package alertqueue decouples incident detection from alert delivery:
// the incident state machine emits events, the dispatcher consumes them
// on its own schedule (spec.md §4.4, §6).
package alertqueue

import (
	"context"
	"time"
)

// Event is a single alert-worthy transition: an incident opened or
// resolved for a monitor.
type Event struct {
	MonitorID  int64
	IncidentID int64
	Kind       Kind
	Reason     string
	At         time.Time
}

// Kind distinguishes an open transition from a resolve transition. The
// string values are the wire "type" values spec.md §6 mandates, and
// that original_source/services/notifier/notifier.py branches on
// (alert.get("type") == "incident" / "recovered").
type Kind string

const (
	KindOpened   Kind = "incident"
	KindResolved Kind = "recovered"
)

// Queue is the Alert Emitter's output channel. Emit is called by
// internal/incident; Receive is called by internal/dispatcher.
type Queue interface {
	// Emit appends an event. It must not block the incident state
	// machine on a slow or unavailable dispatcher (spec.md §4.4).
	Emit(ctx context.Context, ev Event) error

	// Receive blocks until an event is available or ctx is canceled.
	Receive(ctx context.Context) (Event, error)
}
