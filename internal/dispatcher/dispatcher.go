// Package dispatcher consumes alert events and delivers them to a
// single configured chat webhook (SPEC_FULL.md §4.6). Delivery is
// at-most-once: a failure is logged and recorded, and the dispatcher
// moves on to the next event rather than retrying or blocking.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/upwatch/upwatch/internal/alertqueue"
	"github.com/upwatch/upwatch/internal/metrics"
	"github.com/upwatch/upwatch/internal/store"
)

// NotificationStore is the subset of internal/store the dispatcher needs.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *store.Notification) error
}

// Dispatcher consumes alertqueue.Queue and posts a JSON payload to a
// webhook URL, the common denominator of Slack/Discord/Teams incoming
// webhooks.
type Dispatcher struct {
	queue      alertqueue.Queue
	store      NotificationStore
	http       *http.Client
	webhookURL string
	logger     *slog.Logger
}

// New builds a Dispatcher.
func New(queue alertqueue.Queue, st NotificationStore, webhookURL string, requestTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:      queue,
		store:      st,
		http:       &http.Client{Timeout: requestTimeout},
		webhookURL: webhookURL,
		logger:     logger.With("component", "dispatcher"),
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Run blocks, consuming events one at a time until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		ev, err := d.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("receive alert event failed", "error", err)
			continue
		}
		d.deliver(ctx, ev)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev alertqueue.Event) {
	text := renderText(ev)

	status := store.NotificationStatusSent
	detail := ""

	if d.webhookURL == "" {
		status = store.NotificationStatusFailed
		detail = "no webhook url configured"
	} else if err := d.post(ctx, text); err != nil {
		status = store.NotificationStatusFailed
		detail = err.Error()
		d.logger.Error("webhook delivery failed", "monitor_id", ev.MonitorID, "incident_id", ev.IncidentID, "error", err)
	}

	metrics.NotificationsDispatched.WithLabelValues(status).Inc()

	incidentID := ev.IncidentID
	n := &store.Notification{
		IncidentID: &incidentID,
		Channel:    "webhook",
		SentAt:     time.Now(),
		Status:     status,
		Detail:     detail,
	}
	if err := d.store.InsertNotification(ctx, n); err != nil {
		d.logger.Error("record notification failed", "error", err)
	}
}

func (d *Dispatcher) post(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func renderText(ev alertqueue.Event) string {
	switch ev.Kind {
	case alertqueue.KindOpened:
		return fmt.Sprintf("monitor %d: incident #%d opened - %s", ev.MonitorID, ev.IncidentID, ev.Reason)
	case alertqueue.KindResolved:
		return fmt.Sprintf("monitor %d: incident #%d resolved", ev.MonitorID, ev.IncidentID)
	default:
		return fmt.Sprintf("monitor %d: incident #%d %s", ev.MonitorID, ev.IncidentID, ev.Kind)
	}
}
