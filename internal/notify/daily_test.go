package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
)

func fieldValue(fields []Field, title string) (string, bool) {
	for _, f := range fields {
		if f.Title == title {
			return f.Value, true
		}
	}
	return "", false
}

func TestMinerDaily_Fields(t *testing.T) {
	d := NewMinerDaily()
	d.RecordSweep("hotkeyA", 2_000_000_000, true)
	d.RecordSweep("hotkeyB", 1_000_000_000, true)
	d.RecordSweep("hotkeyC", 0, false)
	d.RecordTransfer(3_000_000_000, true)

	fields := d.Fields(LifetimeMetrics{TotalSweeps: 40}, NewUptime(0))

	if v, _ := fieldValue(fields, "Today's Sweeps"); v != "2" {
		t.Errorf("Today's Sweeps = %q, want 2", v)
	}
	if v, _ := fieldValue(fields, "Lifetime Sweeps"); v != "40" {
		t.Errorf("Lifetime Sweeps = %q, want 40", v)
	}
	if v, _ := fieldValue(fields, "Sweep Success Rate"); v != "66.7%" {
		t.Errorf("success rate = %q, want 66.7%%", v)
	}
	if v, _ := fieldValue(fields, "Hotkeys Swept"); v != "2" {
		t.Errorf("Hotkeys Swept = %q, want 2", v)
	}
	if v, ok := fieldValue(fields, "Failed Steps"); !ok || !strings.Contains(v, "sweeps: 1") {
		t.Errorf("Failed Steps = %q, want sweeps: 1", v)
	}

	d.Reset()
	fields = d.Fields(LifetimeMetrics{}, NewUptime(0))
	if v, _ := fieldValue(fields, "Today's Sweeps"); v != "0" {
		t.Errorf("after Reset, Today's Sweeps = %q, want 0", v)
	}
	if _, ok := fieldValue(fields, "Failed Steps"); ok {
		t.Error("after Reset, Failed Steps field still present")
	}
}

func TestValidatorDaily_Fields(t *testing.T) {
	d := NewValidatorDaily()
	d.RecordWeightSet()
	d.RecordWeightFailure()
	d.RecordNoPermit()
	d.RecordBurnUIDChange(69, 12)

	fields := d.Fields(LifetimeMetrics{TotalWeightsSet: 100}, NewUptime(0))

	if v, _ := fieldValue(fields, "Today's Weights Set"); v != "1" {
		t.Errorf("Today's Weights Set = %q, want 1", v)
	}
	if v, _ := fieldValue(fields, "Weight Set Success Rate"); v != "50.0%" {
		t.Errorf("success rate = %q, want 50.0%%", v)
	}
	if v, _ := fieldValue(fields, "Avg Interval Between Weight Sets"); v != "N/A" {
		t.Errorf("avg interval = %q, want N/A with one sample", v)
	}
	if v, ok := fieldValue(fields, "Burn UID Changes"); !ok || !strings.Contains(v, "from 69 to 12") {
		t.Errorf("Burn UID Changes = %q", v)
	}
	if v, _ := fieldValue(fields, "No Permit Events"); v != "1" {
		t.Errorf("No Permit Events = %q, want 1", v)
	}
}

func TestValidatorDaily_AvgInterval(t *testing.T) {
	d := NewValidatorDaily()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d.weightSetTimes = []time.Time{base, base.Add(30 * time.Minute), base.Add(90 * time.Minute)}
	d.weightsSet = 3

	fields := d.Fields(LifetimeMetrics{}, NewUptime(0))
	if v, _ := fieldValue(fields, "Avg Interval Between Weight Sets"); v != "45.0 minutes" {
		t.Errorf("avg interval = %q, want 45.0 minutes", v)
	}
}

func TestWeightFailureMessage_Templates(t *testing.T) {
	d := failure.Decision{Class: domain.FailureCritical, Consecutive: 1, SinceSuccess: 5 * time.Minute}

	msg := WeightFailureMessage("5Hotkey12345678", 35, "maximum recursion depth exceeded", d)
	if !strings.Contains(msg, "recursion error") || !strings.Contains(msg, "...12345678") {
		t.Errorf("recursion template wrong: %q", msg)
	}

	msg = WeightFailureMessage("5Hotkey12345678", 35, "Subtensor returned: Invalid Transaction", d)
	if !strings.Contains(msg, "rejected weight transaction") {
		t.Errorf("invalid transaction template wrong: %q", msg)
	}

	d = failure.Decision{Class: domain.FailureUnknown, Consecutive: 3, SinceSuccess: 20 * time.Minute}
	msg = WeightFailureMessage("5Hotkey12345678", 35, "something new broke", d)
	if !strings.Contains(msg, "NEW PATTERN") || !strings.Contains(msg, "Consecutive failures: 3") {
		t.Errorf("unknown template wrong: %q", msg)
	}

	d = failure.Decision{Class: domain.FailureBenign, Consecutive: 4, SinceSuccess: 3 * time.Hour}
	msg = WeightFailureMessage("5Hotkey12345678", 35, "too soon to commit weights", d)
	if !strings.Contains(msg, "URGENT") || !strings.Contains(msg, "3.0 hours") {
		t.Errorf("prolonged template wrong: %q", msg)
	}

	d.SinceSuccess = 90 * time.Minute
	msg = WeightFailureMessage("5Hotkey12345678", 35, "too soon to commit weights", d)
	if !strings.Contains(msg, "WARNING") {
		t.Errorf("sub-two-hour prolonged template should warn: %q", msg)
	}
}
