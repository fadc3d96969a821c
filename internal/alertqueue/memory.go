package alertqueue

import "context"

// MemoryQueue is a buffered-channel Queue for single-process deployments
// where the dispatcher runs in the same binary as the prober (see
// SPEC_FULL.md §4.4 deployment note). Emit drops the event rather than
// blocking if the buffer is full, since the incident state machine must
// never stall waiting on alert delivery.
type MemoryQueue struct {
	events chan Event
}

// NewMemoryQueue builds a buffered in-process alert queue.
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	return &MemoryQueue{events: make(chan Event, bufferSize)}
}

func (q *MemoryQueue) Emit(ctx context.Context, ev Event) error {
	select {
	case q.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Buffer full: drop rather than block the caller. A dropped
		// alert is recoverable from incident history; a stalled
		// prober tick is not.
		return nil
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.events:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
