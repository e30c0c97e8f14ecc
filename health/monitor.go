package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/agentbridge/event"
)

// Check produces the current status of one component. Checks must be fast;
// the monitor calls them serially on each poll.
type Check func(ctx context.Context) Status

// Monitor polls registered checks on an interval and keeps the latest
// status per component. Level transitions publish a health.changed event.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	bus      *event.Bus

	mu       sync.RWMutex
	checks   map[string]Check
	statuses map[string]Status
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithBus publishes level transitions to the bus.
func WithBus(bus *event.Bus) MonitorOption {
	return func(m *Monitor) { m.bus = bus }
}

// WithInterval overrides the default 15s poll interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMonitor creates a monitor. A nil logger falls back to slog.Default.
func NewMonitor(logger *slog.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		interval: 15 * time.Second,
		logger:   logger.With("component", "health"),
		checks:   make(map[string]Check),
		statuses: make(map[string]Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a named check. Re-registering a name replaces the check.
func (m *Monitor) Register(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Run polls until ctx is cancelled. An immediate poll runs before the
// first tick so readiness is meaningful at startup.
func (m *Monitor) Run(ctx context.Context) {
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()

	for name, check := range checks {
		status := check(ctx)
		status.Component = name
		if status.Timestamp.IsZero() {
			status.Timestamp = time.Now()
		}
		m.update(name, status)
	}
}

func (m *Monitor) update(name string, status Status) {
	m.mu.Lock()
	previous, seen := m.statuses[name]
	m.statuses[name] = status
	m.mu.Unlock()

	if seen && previous.Level == status.Level {
		return
	}

	m.logger.Info("health level changed",
		"check", name,
		"level", string(status.Level),
		"message", status.Message)
	if m.bus != nil {
		m.bus.Publish(event.HealthChanged, map[string]any{
			"component": name,
			"level":     string(status.Level),
			"message":   status.Message,
		})
	}
}

// Status returns the latest status for one component.
func (m *Monitor) Status(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[name]
	return s, ok
}

// Snapshot returns the aggregated system status.
func (m *Monitor) Snapshot(system string) Status {
	m.mu.RLock()
	statuses := make([]Status, 0, len(m.statuses))
	for _, s := range m.statuses {
		statuses = append(statuses, s)
	}
	m.mu.RUnlock()
	return Aggregate(system, statuses)
}
