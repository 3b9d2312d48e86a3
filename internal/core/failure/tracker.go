package failure

import (
	"sync"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Thresholds are the alerting policy constants. The defaults come from the
// operational values the alerting rules were tuned with; no additional
// semantics are attached to them.
type Thresholds struct {
	// StaleAfter forces an alert regardless of class or cooldown.
	StaleAfter time.Duration `yaml:"stale_after"`
	// WarnAfter alerts once no success has been seen for this long.
	WarnAfter time.Duration `yaml:"warn_after"`
	// AlertCooldown rate-limits non-critical alerts while recent success exists.
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
	// UnknownConsecutive is the failure streak after which unknown errors alert.
	UnknownConsecutive int `yaml:"unknown_consecutive"`
}

// ApplyDefaults fills zero fields with the standard policy values.
func (t *Thresholds) ApplyDefaults() {
	if t.StaleAfter == 0 {
		t.StaleAfter = 2 * time.Hour
	}
	if t.WarnAfter == 0 {
		t.WarnAfter = time.Hour
	}
	if t.AlertCooldown == 0 {
		t.AlertCooldown = 10 * time.Minute
	}
	if t.UnknownConsecutive == 0 {
		t.UnknownConsecutive = 2
	}
}

// Decision is the outcome of recording a failure.
type Decision struct {
	Alert bool
	Class domain.FailureClass
	// Consecutive is the failure streak including this failure.
	Consecutive int
	// SinceSuccess is the time since the last recorded success, anchored to
	// the first failure when no success has ever been recorded.
	SinceSuccess time.Duration
}

// Tracker keeps per-operation failure bookkeeping and decides when a failure
// should be surfaced as an alert. It is safe for concurrent use; the daily
// summary reporter reads the same counters from another goroutine.
type Tracker struct {
	mu         sync.Mutex
	thresholds Thresholds

	consecutiveFailures int
	lastSuccess         time.Time // zero until the first success
	lastAlert           time.Time // zero until the first alert
	hadCritical         bool
	visibleFailures     int // non-benign failures, for metrics

	now func() time.Time
}

// NewTracker creates a tracker with the given alerting thresholds.
func NewTracker(thresholds Thresholds) *Tracker {
	thresholds.ApplyDefaults()
	return &Tracker{
		thresholds: thresholds,
		now:        time.Now,
	}
}

// OnFailure records a failed operation and returns the alerting decision.
// The last-alert timestamp is advanced only when the decision says to alert.
func (t *Tracker) OnFailure(errMsg string) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	class := Classify(errMsg)

	t.consecutiveFailures++
	if class == domain.FailureCritical {
		t.hadCritical = true
	}
	// Benign failures stay invisible to failure metrics.
	if class != domain.FailureBenign {
		t.visibleFailures++
	}

	now := t.now()

	// Lazy init: the first failure of the process anchors the success
	// clock so staleness is measured from when tracking began.
	if t.lastSuccess.IsZero() {
		t.lastSuccess = now
	}
	sinceSuccess := now.Sub(t.lastSuccess)
	sinceAlert := time.Duration(0)
	if !t.lastAlert.IsZero() {
		sinceAlert = now.Sub(t.lastAlert)
	}

	alert := t.shouldAlert(class, sinceSuccess, sinceAlert)
	if alert {
		t.lastAlert = now
	}

	return Decision{
		Alert:        alert,
		Class:        class,
		Consecutive:  t.consecutiveFailures,
		SinceSuccess: sinceSuccess,
	}
}

// shouldAlert implements the alert policy; first matching rule wins.
func (t *Tracker) shouldAlert(class domain.FailureClass, sinceSuccess, sinceAlert time.Duration) bool {
	// Absolute staleness override, regardless of classification.
	if sinceSuccess > t.thresholds.StaleAfter {
		return true
	}

	// Rate limiting; critical errors and prolonged outages are exempt.
	if class != domain.FailureCritical && sinceSuccess <= t.thresholds.WarnAfter {
		if sinceAlert > 0 && sinceAlert < t.thresholds.AlertCooldown {
			return false
		}
	}

	if class == domain.FailureCritical {
		return true
	}

	if sinceSuccess > t.thresholds.WarnAfter {
		return true
	}

	if class == domain.FailureBenign {
		return false
	}

	if class == domain.FailureUnknown && t.consecutiveFailures >= t.thresholds.UnknownConsecutive {
		return true
	}

	return false
}

// OnSuccess records a successful operation. It reports whether a recovery
// alert should be sent (the streak contained a critical failure). State is
// reset unconditionally.
func (t *Tracker) OnSuccess() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	recovered := t.consecutiveFailures > 0 && t.hadCritical

	t.consecutiveFailures = 0
	t.hadCritical = false
	t.lastSuccess = t.now()

	return recovered
}

// ConsecutiveFailures returns the current failure streak.
func (t *Tracker) ConsecutiveFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveFailures
}

// VisibleFailures returns the count of non-benign failures recorded.
func (t *Tracker) VisibleFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleFailures
}

// SinceSuccess returns the time since the last success, or false when no
// success has been recorded yet.
func (t *Tracker) SinceSuccess() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastSuccess.IsZero() {
		return 0, false
	}
	return t.now().Sub(t.lastSuccess), true
}
