package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// DailyMetrics accumulates one day of role-specific activity and renders
// it as report fields. Reset runs after each successful summary send.
type DailyMetrics interface {
	Fields(lifetime LifetimeMetrics, uptime *Uptime) []Field
	Reset()
}

// MinerDaily tracks the miner's stake sweep activity for the daily report.
type MinerDaily struct {
	mu sync.Mutex

	sweepsCompleted  int
	sweepsFailed     int
	transfersDone    int
	transfersFailed  int
	sweptAmount      domain.Balance
	transferedAmount domain.Balance
	hotkeysSwept     map[string]struct{}
}

func NewMinerDaily() *MinerDaily {
	return &MinerDaily{hotkeysSwept: make(map[string]struct{})}
}

func (m *MinerDaily) RecordSweep(hotkey string, amount domain.Balance, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.sweepsCompleted++
		m.sweptAmount += amount
		m.hotkeysSwept[hotkey] = struct{}{}
	} else {
		m.sweepsFailed++
	}
}

func (m *MinerDaily) RecordTransfer(amount domain.Balance, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.transfersDone++
		m.transferedAmount += amount
	} else {
		m.transfersFailed++
	}
}

func (m *MinerDaily) Fields(lifetime LifetimeMetrics, uptime *Uptime) []Field {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.sweepsCompleted + m.sweepsFailed
	successRate := 0.0
	if total > 0 {
		successRate = float64(m.sweepsCompleted) / float64(total) * 100
	}

	fields := []Field{
		{Title: "Script Uptime", Value: uptime.String(), Short: true},
		{Title: "Lifetime Sweeps", Value: fmt.Sprintf("%d", lifetime.TotalSweeps), Short: true},
		{Title: "Today's Sweeps", Value: fmt.Sprintf("%d", m.sweepsCompleted), Short: true},
		{Title: "Sweep Success Rate", Value: fmt.Sprintf("%.1f%%", successRate), Short: true},
		{Title: "Stake Swept Today", Value: m.sweptAmount.String(), Short: true},
		{Title: "Hotkeys Swept", Value: fmt.Sprintf("%d", len(m.hotkeysSwept)), Short: true},
		{Title: "Transfers To Destination", Value: fmt.Sprintf("%d (%s)", m.transfersDone, m.transferedAmount), Short: true},
	}
	if m.sweepsFailed > 0 || m.transfersFailed > 0 {
		fields = append(fields, Field{
			Title: "Failed Steps",
			Value: fmt.Sprintf("sweeps: %d, transfers: %d", m.sweepsFailed, m.transfersFailed),
			Short: true,
		})
	}
	return fields
}

func (m *MinerDaily) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepsCompleted = 0
	m.sweepsFailed = 0
	m.transfersDone = 0
	m.transfersFailed = 0
	m.sweptAmount = 0
	m.transferedAmount = 0
	m.hotkeysSwept = make(map[string]struct{})
}

// BurnUIDChange records a switch of the burn target during the day.
type BurnUIDChange struct {
	Old int
	New int
	At  time.Time
}

// ValidatorDaily tracks the validator's weight-setting activity for the
// daily report.
type ValidatorDaily struct {
	mu sync.Mutex

	weightsSet           int
	weightsFailed        int
	weightSetTimes       []time.Time
	noPermitEvents       int
	registrationFailures int
	burnUIDChanges       []BurnUIDChange
}

func NewValidatorDaily() *ValidatorDaily {
	return &ValidatorDaily{}
}

func (v *ValidatorDaily) RecordWeightSet() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.weightsSet++
	v.weightSetTimes = append(v.weightSetTimes, time.Now().UTC())
}

func (v *ValidatorDaily) RecordWeightFailure() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.weightsFailed++
}

func (v *ValidatorDaily) RecordNoPermit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.noPermitEvents++
}

func (v *ValidatorDaily) RecordRegistrationFailure() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.registrationFailures++
}

func (v *ValidatorDaily) RecordBurnUIDChange(oldUID, newUID int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.burnUIDChanges = append(v.burnUIDChanges, BurnUIDChange{Old: oldUID, New: newUID, At: time.Now().UTC()})
}

func (v *ValidatorDaily) Fields(lifetime LifetimeMetrics, uptime *Uptime) []Field {
	v.mu.Lock()
	defer v.mu.Unlock()

	total := v.weightsSet + v.weightsFailed
	successRate := 0.0
	if total > 0 {
		successRate = float64(v.weightsSet) / float64(total) * 100
	}

	fields := []Field{
		{Title: "Script Uptime", Value: uptime.String(), Short: true},
		{Title: "Lifetime Weights Set", Value: fmt.Sprintf("%d", lifetime.TotalWeightsSet), Short: true},
		{Title: "Today's Weights Set", Value: fmt.Sprintf("%d", v.weightsSet), Short: true},
		{Title: "Weight Set Success Rate", Value: fmt.Sprintf("%.1f%%", successRate), Short: true},
		{Title: "Avg Interval Between Weight Sets", Value: v.avgIntervalLocked(), Short: true},
	}
	if v.weightsFailed > 0 {
		fields = append(fields, Field{Title: "Failed Weight Sets", Value: fmt.Sprintf("%d", v.weightsFailed), Short: true})
	}
	if v.noPermitEvents > 0 {
		fields = append(fields, Field{Title: "No Permit Events", Value: fmt.Sprintf("%d", v.noPermitEvents), Short: true})
	}
	if v.registrationFailures > 0 {
		fields = append(fields, Field{Title: "Registration Failures", Value: fmt.Sprintf("%d", v.registrationFailures), Short: true})
	}
	if len(v.burnUIDChanges) > 0 {
		lines := make([]string, 0, len(v.burnUIDChanges))
		for _, c := range v.burnUIDChanges {
			lines = append(lines, fmt.Sprintf("Changed from %d to %d at %s", c.Old, c.New, c.At.Format("15:04:05")))
		}
		fields = append(fields, Field{Title: "Burn UID Changes", Value: strings.Join(lines, "\n")})
	}
	return fields
}

func (v *ValidatorDaily) avgIntervalLocked() string {
	if len(v.weightSetTimes) < 2 {
		return "N/A"
	}
	var sum time.Duration
	for i := 1; i < len(v.weightSetTimes); i++ {
		sum += v.weightSetTimes[i].Sub(v.weightSetTimes[i-1])
	}
	avg := sum / time.Duration(len(v.weightSetTimes)-1)
	return fmt.Sprintf("%.1f minutes", avg.Minutes())
}

func (v *ValidatorDaily) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.weightsSet = 0
	v.weightsFailed = 0
	v.weightSetTimes = nil
	v.noPermitEvents = 0
	v.registrationFailures = 0
	v.burnUIDChanges = nil
}

// Reporter sends the daily summary at midnight UTC.
type Reporter struct {
	cron     *cron.Cron
	slack    *Slack
	daily    DailyMetrics
	lifetime *LifetimeRecorder
	log      *slog.Logger
}

func NewReporter(slack *Slack, daily DailyMetrics, lifetime *LifetimeRecorder, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		slack:    slack,
		daily:    daily,
		lifetime: lifetime,
		log:      log,
	}
}

// Start schedules the midnight UTC summary. No-op when no webhook is
// configured.
func (r *Reporter) Start() error {
	if r.slack == nil {
		return nil
	}
	if _, err := r.cron.AddFunc("0 0 * * *", r.SendSummary); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}
	r.cron.Start()
	return nil
}

// SendSummary builds and sends the summary report, then resets the daily
// counters.
func (r *Reporter) SendSummary() {
	if r.slack == nil {
		return
	}
	title := fmt.Sprintf("📊 Daily Summary Report - %s", time.Now().UTC().Format("2006-01-02"))
	fields := r.daily.Fields(r.lifetime.Snapshot(), r.lifetime.Uptime())
	r.slack.SendReport(title, fields, LevelSuccess)
	r.daily.Reset()
	r.log.Info("Sent daily summary")
}

// Stop halts the schedule and waits for an in-flight summary to finish.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
