package health

import (
	"context"
	"sync"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
)

// Monitor aggregates health status from the per-operation failure
// trackers. Status thresholds mirror the alerting policy: an operation
// past the warn window is degraded, past the stale window critical.
type Monitor struct {
	trackers   map[domain.OperationKind]*failure.Tracker
	thresholds failure.Thresholds
	network    func() domain.Network

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport map[string]OperationHealth
}

// NewMonitor creates a health monitor over the given trackers.
func NewMonitor(
	trackers map[domain.OperationKind]*failure.Tracker,
	thresholds failure.Thresholds,
	network func() domain.Network,
) *Monitor {
	thresholds.ApplyDefaults()
	return &Monitor{
		trackers:   trackers,
		thresholds: thresholds,
		network:    network,
		lastReport: make(map[string]OperationHealth),
	}
}

// CheckHealth reports per-operation health. Reports are cached for a few
// seconds so probe storms don't contend on the trackers.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]OperationHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && len(m.lastReport) > 0 {
		return m.lastReport
	}

	network := ""
	if m.network != nil {
		network = string(m.network())
	}

	report := make(map[string]OperationHealth, len(m.trackers))
	for op, tracker := range m.trackers {
		h := OperationHealth{
			Operation:           string(op),
			Status:              StatusHealthy,
			ConsecutiveFailures: tracker.ConsecutiveFailures(),
			Network:             network,
		}

		if since, ok := tracker.SinceSuccess(); ok {
			seconds := since.Seconds()
			h.SecondsSinceSuccess = &seconds

			switch {
			case since > m.thresholds.StaleAfter:
				h.Status = StatusCritical
			case since > m.thresholds.WarnAfter:
				h.Status = StatusDegraded
			}
		}
		if h.Status == StatusHealthy && h.ConsecutiveFailures > 0 {
			h.Status = StatusDegraded
		}

		report[string(op)] = h
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
