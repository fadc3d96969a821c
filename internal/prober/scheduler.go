package prober

import (
	"context"
	"log/slog"
	"time"

	"github.com/upwatch/upwatch/internal/incident"
	"github.com/upwatch/upwatch/internal/metrics"
	"github.com/upwatch/upwatch/internal/store"
	"github.com/upwatch/upwatch/internal/streak"
)

const maxErrorReasonBytes = 500

// Store is the subset of internal/store the scheduler needs to read
// monitors and persist observations.
type Store interface {
	ListEnabledMonitors(ctx context.Context) ([]*store.Monitor, error)
	InsertObservation(ctx context.Context, o *store.Observation) error
}

// IncidentObserver is satisfied by incident.Machine; named here so the
// scheduler can be tested against a fake without building a real Machine.
type IncidentObserver interface {
	Observe(ctx context.Context, obs incident.Observation) error
}

// Scheduler drives the pulse loop: every tick, it computes the due set
// from the streak cache's cadence tracking, then fans probes out to a
// bounded worker pool (spec.md §4.1).
type Scheduler struct {
	store       Store
	cache       streak.Cache
	machine     IncidentObserver
	client      *Client
	workers     int
	defaultIntv time.Duration
	defaultTOms time.Duration
	logger      *slog.Logger
}

// Config bundles the scheduler's tunables, mirrored from config.SchedulerConfig.
type Config struct {
	PulseInterval   time.Duration
	ProbeWorkers    int
	DefaultInterval time.Duration
	DefaultTimeout  time.Duration
}

// New builds a Scheduler.
func New(st Store, cache streak.Cache, machine IncidentObserver, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.ProbeWorkers
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		store:       st,
		cache:       cache,
		machine:     machine,
		client:      NewClient(),
		workers:     workers,
		defaultIntv: cfg.DefaultInterval,
		defaultTOms: cfg.DefaultTimeout,
		logger:      logger.With("component", "prober"),
	}
}

// Run blocks, firing Tick on every pulse until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, pulse time.Duration) {
	ticker := time.NewTicker(pulse)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick performs one pulse: list enabled monitors, compute the due set,
// and fan probes out to a bounded worker pool. Each monitor's pipeline
// runs in its own goroutine under the semaphore so one monitor's panic
// or slow probe never stalls the others (SPEC_FULL.md §4.1).
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	tickStart := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(tickStart).Seconds()) }()

	monitors, err := s.store.ListEnabledMonitors(ctx)
	if err != nil {
		s.logger.Error("list enabled monitors failed", "error", err)
		return
	}

	sem := make(chan struct{}, s.workers)
	for _, m := range monitors {
		interval := s.defaultIntv
		if m.IntervalSec > 0 {
			interval = time.Duration(m.IntervalSec) * time.Second
		}

		due, err := s.cache.Due(ctx, m.ID, interval, now)
		if err != nil {
			s.logger.Error("due check failed", "monitor_id", m.ID, "error", err)
			continue
		}
		if !due {
			continue
		}

		sem <- struct{}{}
		go func(m *store.Monitor) {
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("probe pipeline panicked", "monitor_id", m.ID, "panic", r)
				}
			}()
			s.probeOne(ctx, m)
		}(m)
	}

	// Drain: wait for all in-flight goroutines of this tick before
	// returning, so the next ticker fire never overlaps this one's
	// worker pool beyond the semaphore's own limit.
	for i := 0; i < s.workers; i++ {
		sem <- struct{}{}
	}
}

func (s *Scheduler) probeOne(ctx context.Context, m *store.Monitor) {
	timeout := s.defaultTOms
	if m.TimeoutMS > 0 {
		timeout = time.Duration(m.TimeoutMS) * time.Millisecond
	}

	expected := make(map[int]struct{}, len(m.ExpectedStatuses))
	for _, code := range m.ExpectedStatuses {
		expected[int(code)] = struct{}{}
	}

	result := s.client.Probe(ctx, m.Method, m.URL, timeout, expected)
	if result.OK {
		metrics.ProbesTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.ProbesTotal.WithLabelValues("fail").Inc()
	}

	obs := &store.Observation{
		MonitorID:  m.ID,
		TS:         result.StartedAt,
		StatusCode: int32Ptr(result.StatusCode),
		LatencyMS:  int32Ptr(result.LatencyMS),
		OK:         result.OK,
	}
	if result.ErrorReason != "" {
		reason := truncateErrorReason(result.ErrorReason, maxErrorReasonBytes)
		obs.ErrorReason = &reason
	}

	if err := s.store.InsertObservation(ctx, obs); err != nil {
		s.logger.Error("insert observation failed", "monitor_id", m.ID, "error", err)
		return
	}

	incObs := incident.Observation{
		MonitorID: m.ID,
		TS:        result.StartedAt,
		OK:        result.OK,
	}
	if result.StatusCode != nil {
		incObs.StatusCode = result.StatusCode
	}
	if obs.ErrorReason != nil {
		incObs.ErrorReason = *obs.ErrorReason
	}

	if err := s.machine.Observe(ctx, incObs); err != nil {
		s.logger.Error("incident observe failed", "monitor_id", m.ID, "error", err)
	}
}

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	out := int32(*v)
	return &out
}
