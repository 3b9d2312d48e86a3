package failure

import (
	"testing"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// fakeClock lets tests drive tracker time deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(Thresholds{})
	tr.now = clock.Now
	return tr, clock
}

func TestTracker_CriticalAlwaysAlerts(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()

	// Rapid critical failures are never rate limited.
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		d := tr.OnFailure("subtensor returned: invalid transaction")
		if d.Class != domain.FailureCritical {
			t.Fatalf("attempt %d: class = %s, want critical", i, d.Class)
		}
		if !d.Alert {
			t.Errorf("attempt %d: critical failure did not alert", i)
		}
	}
}

func TestTracker_BenignNeverAlertsUnlessStale(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()

	clock.Advance(30 * time.Minute)
	if d := tr.OnFailure("too soon to commit weights"); d.Alert {
		t.Error("benign failure alerted before staleness threshold")
	}

	// Past the absolute staleness override even benign errors alert.
	clock.Advance(2 * time.Hour)
	if d := tr.OnFailure("too soon to commit weights"); !d.Alert {
		t.Error("benign failure did not alert past staleness override")
	}
}

func TestTracker_UnknownAlertsOnSecondConsecutive(t *testing.T) {
	// With no prior success the success clock anchors to the first failure:
	// the first unknown failure stays quiet, the second one alerts.
	tr, clock := newTestTracker()

	if d := tr.OnFailure("weird error"); d.Alert {
		t.Errorf("first unknown failure alerted (consecutive=%d)", d.Consecutive)
	}
	clock.Advance(time.Second)
	if d := tr.OnFailure("weird error"); !d.Alert {
		t.Errorf("second unknown failure did not alert (consecutive=%d)", d.Consecutive)
	}
}

func TestTracker_StalenessOverridesCooldown(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()

	// Push past the 2h staleness override, alert, then fail again
	// immediately: the override ignores the cooldown.
	clock.Advance(2*time.Hour + time.Second)
	if d := tr.OnFailure("weird error"); !d.Alert {
		t.Fatal("expected staleness alert")
	}
	clock.Advance(time.Second)
	if d := tr.OnFailure("weird error"); !d.Alert {
		t.Error("staleness override must not be rate limited")
	}
}

func TestTracker_CooldownSuppressesRepeatAlerts(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()
	clock.Advance(time.Minute)

	tr.OnFailure("weird error")
	if d := tr.OnFailure("weird error"); !d.Alert {
		t.Fatal("second unknown failure should alert")
	}

	// Within the 10 minute cooldown and under the warn threshold, further
	// unknown failures stay quiet.
	clock.Advance(time.Minute)
	if d := tr.OnFailure("weird error"); d.Alert {
		t.Error("alert not suppressed inside cooldown window")
	}
}

func TestTracker_OnSuccessResetsState(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()
	clock.Advance(time.Minute)

	tr.OnFailure("weird error")
	tr.OnFailure("weird error")
	if got := tr.ConsecutiveFailures(); got != 2 {
		t.Fatalf("consecutive = %d, want 2", got)
	}

	// No critical failure in the streak: no recovery alert, but the
	// counter still resets.
	if tr.OnSuccess() {
		t.Error("recovery alert without critical failure in streak")
	}
	if got := tr.ConsecutiveFailures(); got != 0 {
		t.Errorf("consecutive after success = %d, want 0", got)
	}
}

func TestTracker_RecoveryAfterCritical(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()
	clock.Advance(time.Minute)

	tr.OnFailure("invalid transaction")
	if !tr.OnSuccess() {
		t.Error("expected recovery alert after critical failure")
	}
	// Flag cleared by the success.
	clock.Advance(time.Minute)
	tr.OnFailure("weird error")
	if tr.OnSuccess() {
		t.Error("recovery alert leaked across resets")
	}
}

func TestTracker_BenignInvisibleToMetrics(t *testing.T) {
	tr, clock := newTestTracker()
	tr.OnSuccess()
	clock.Advance(time.Minute)

	tr.OnFailure("too soon to commit")
	tr.OnFailure("weird error")
	tr.OnFailure("invalid transaction")

	if got := tr.VisibleFailures(); got != 2 {
		t.Errorf("visible failures = %d, want 2 (benign excluded)", got)
	}
	if got := tr.ConsecutiveFailures(); got != 3 {
		t.Errorf("consecutive failures = %d, want 3 (benign included)", got)
	}
}
