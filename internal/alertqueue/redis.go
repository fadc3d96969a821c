package alertqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// alertsListKey matches the original worker's enqueue_alert, which does
// r.lpush("alerts", ...) (original_source/services/monitor/worker.py).
const alertsListKey = "alerts"

// RedisQueue is a Queue backed by a Redis list: producers LPUSH, the
// single dispatcher consumer BRPOPs, giving FIFO delivery across
// process restarts without a separate broker.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue wraps an existing go-redis client.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// wireEvent is the exact shape spec.md §6 mandates: {"type": "incident"
// | "recovered", "monitor_id", "incident_id", "reason"}. Reason is
// omitted for recovered events, matching the original notifier's
// alert.get("type") dispatch (original_source/services/notifier/notifier.py).
type wireEvent struct {
	Type       string `json:"type"`
	MonitorID  int64  `json:"monitor_id"`
	IncidentID int64  `json:"incident_id"`
	Reason     string `json:"reason,omitempty"`
}

func (q *RedisQueue) Emit(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(wireEvent{
		Type:       string(ev.Kind),
		MonitorID:  ev.MonitorID,
		IncidentID: ev.IncidentID,
		Reason:     ev.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	if err := q.rdb.LPush(ctx, alertsListKey, payload).Err(); err != nil {
		return fmt.Errorf("lpush alert event: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context) (Event, error) {
	// BRPop blocks server-side with no timeout cap here; ctx cancellation
	// unblocks the client call when the dispatcher is shutting down.
	res, err := q.rdb.BRPop(ctx, 0).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("brpop alert event: %w", err)
	}
	if len(res) != 2 {
		return Event{}, fmt.Errorf("brpop alert event: unexpected reply shape %v", res)
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(res[1]), &w); err != nil {
		return Event{}, fmt.Errorf("unmarshal alert event: %w", err)
	}

	return Event{
		MonitorID:  w.MonitorID,
		IncidentID: w.IncidentID,
		Kind:       Kind(w.Type),
		Reason:     w.Reason,
	}, nil
}
