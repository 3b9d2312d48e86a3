package subtensor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/metrics"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
)

// FailoverManager drives failure-based endpoint rotation: benign errors stay
// on the current network, everything else rotates to the next one. It keeps
// the consecutive-failure count for recovery logging; alert decisions belong
// to failure.Tracker.
type FailoverManager struct {
	rotator  *Rotator
	notifier notify.Notifier
	log      *slog.Logger

	mu                  sync.Mutex
	consecutiveFailures int
}

// NewFailoverManager wires a rotator to the notification sink.
func NewFailoverManager(rotator *Rotator, notifier notify.Notifier, log *slog.Logger) *FailoverManager {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &FailoverManager{
		rotator:  rotator,
		notifier: notifier,
		log:      log,
	}
}

// Client returns the active chain connection.
func (m *FailoverManager) Client() Client { return m.rotator.Client() }

// CurrentNetwork returns the active network name.
func (m *FailoverManager) CurrentNetwork() domain.Network { return m.rotator.CurrentNetwork() }

// HandleFailure classifies an operation failure and rotates the endpoint for
// non-benign errors. It reports whether the error was benign (no rotation).
func (m *FailoverManager) HandleFailure(errMsg, operation string) bool {
	if failure.IsBenign(errMsg) {
		m.log.Info("Benign error; continuing without network switch", "operation", operation)
		return true
	}

	m.mu.Lock()
	m.consecutiveFailures++
	m.mu.Unlock()

	old := m.rotator.CurrentNetwork()
	next := m.rotator.Rotate()
	metrics.NetworkRotationsTotal.WithLabelValues(string(old), string(next)).Inc()

	m.log.Warn("Non-benign operation error; switched network",
		"operation", operation, "from", old, "to", next)
	m.notifier.Send(
		fmt.Sprintf("Switching subtensor network from %s to %s due to operation failures", old, next),
		notify.LevelWarning,
	)
	return false
}

// HandleSuccess resets the failure streak. The current network is kept; a
// recovery note is sent when the operation had been failing.
func (m *FailoverManager) HandleSuccess(operation string) {
	m.mu.Lock()
	failures := m.consecutiveFailures
	m.consecutiveFailures = 0
	m.mu.Unlock()

	if failures == 0 {
		return
	}

	network := m.rotator.CurrentNetwork()
	m.log.Info("Operation recovered; staying on current network",
		"operation", operation, "network", network, "failures", failures)
	m.notifier.Send(
		fmt.Sprintf("✅ %s recovered on %s after %d failures", operation, network, failures),
		notify.LevelInfo,
	)
}

// Close tears down the active connection.
func (m *FailoverManager) Close() { m.rotator.Close() }
