// Package validator implements the burn-weight setter: it keeps the
// subnet's full weight on the burn UID, re-submitting on a fixed block
// interval and classifying every failure for alerting and failover.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/config"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/memory"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/subtensor"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/metrics"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
)

// stateCacheTTL bounds how long permit status, version key and burn UID
// are trusted before re-reading chain state.
const stateCacheTTL = 6 * time.Hour

// registeredRetrySleep is the pause before rechecking registration.
const registeredRetrySleep = 10 * time.Second

// ChainSession provides the active chain client plus failure-driven
// endpoint rotation. Satisfied by subtensor.FailoverManager.
type ChainSession interface {
	Client() subtensor.Client
	CurrentNetwork() domain.Network
	HandleFailure(errMsg, operation string) bool
	HandleSuccess(operation string)
}

// Options wires a Validator.
type Options struct {
	Session  ChainSession
	Hotkey   string
	Netuid   int
	Config   config.ValidatorConfig
	Notifier notify.Notifier
	Daily    *notify.ValidatorDaily
	Lifetime *notify.LifetimeRecorder
	Tracker  *failure.Tracker
	Attempts storage.AttemptRepository
	Log      *slog.Logger
}

// Validator runs the weight-setting loop.
type Validator struct {
	session  ChainSession
	hotkey   string
	netuid   int
	cfg      config.ValidatorConfig
	notifier notify.Notifier
	daily    *notify.ValidatorDaily
	lifetime *notify.LifetimeRecorder
	tracker  *failure.Tracker
	attempts storage.AttemptRepository
	log      *slog.Logger

	uid     int
	burnUID int

	lastBurnUIDCheck time.Time
	hasPermit        *bool
	lastPermitCheck  time.Time
	versionKey       *uint64
	lastVersionCheck time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func New(opts Options) *Validator {
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Daily == nil {
		opts.Daily = notify.NewValidatorDaily()
	}
	if opts.Tracker == nil {
		opts.Tracker = failure.NewTracker(failure.Thresholds{})
	}
	if opts.Attempts == nil {
		opts.Attempts = memory.NewAttemptRepo()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Validator{
		session:  opts.Session,
		hotkey:   opts.Hotkey,
		netuid:   opts.Netuid,
		cfg:      opts.Config,
		notifier: opts.Notifier,
		daily:    opts.Daily,
		lifetime: opts.Lifetime,
		tracker:  opts.Tracker,
		attempts: opts.Attempts,
		log:      opts.Log,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Init resolves the validator's own UID and the burn UID. A configured
// non-negative target UID short-circuits burn-UID detection.
func (v *Validator) Init(ctx context.Context) error {
	uid, err := v.session.Client().GetUIDForHotkey(ctx, v.hotkey, v.netuid)
	if err != nil {
		return fmt.Errorf("resolve validator UID: %w", err)
	}
	v.uid = uid
	v.log.Info("Validator UID resolved", "uid", uid, "netuid", v.netuid)

	if v.cfg.TargetUID >= 0 {
		v.burnUID = v.cfg.TargetUID
		v.log.Info("Using configured burn UID", "burn_uid", v.burnUID)
	} else {
		burnUID, err := v.detectBurnUID(ctx)
		if err != nil {
			return fmt.Errorf("detect burn UID: %w", err)
		}
		v.burnUID = burnUID
		v.log.Info("Detected burn UID from subnet owner", "burn_uid", burnUID)
	}
	v.lastBurnUIDCheck = v.now()
	return nil
}

// BurnUID returns the UID currently receiving the full weight.
func (v *Validator) BurnUID() int { return v.burnUID }

// detectBurnUID resolves the subnet owner's hotkey to its UID.
func (v *Validator) detectBurnUID(ctx context.Context) (int, error) {
	raw, err := v.session.Client().QueryState(ctx, "SubnetOwnerHotkey", v.netuid)
	if err != nil {
		return 0, err
	}
	ownerHotkey, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected SubnetOwnerHotkey value %T", raw)
	}
	return v.session.Client().GetUIDForHotkey(ctx, ownerHotkey, v.netuid)
}

// refreshBurnUID rechecks the burn UID after the cache TTL and records
// changes. Auto-detection only; a configured target UID is never moved.
func (v *Validator) refreshBurnUID(ctx context.Context) {
	if v.cfg.TargetUID >= 0 || v.now().Sub(v.lastBurnUIDCheck) < stateCacheTTL {
		return
	}
	v.log.Info("Checking for burn UID changes")
	newUID, err := v.detectBurnUID(ctx)
	if err != nil {
		v.log.Error("Burn UID recheck failed", "error", err)
		return
	}
	if newUID != v.burnUID {
		v.log.Warn("Burn UID changed", "old", v.burnUID, "new", newUID)
		v.daily.RecordBurnUIDChange(v.burnUID, newUID)
		v.burnUID = newUID
	}
	v.lastBurnUIDCheck = v.now()
}

// checkPermit returns the cached validator permit, re-reading chain
// state after the TTL.
func (v *Validator) checkPermit(ctx context.Context) (bool, error) {
	if v.hasPermit != nil && v.now().Sub(v.lastPermitCheck) < stateCacheTTL {
		return *v.hasPermit, nil
	}
	v.log.Info("Checking validator permit status")
	raw, err := v.session.Client().QueryState(ctx, "ValidatorPermit", v.netuid)
	if err != nil {
		return false, fmt.Errorf("query validator permits: %w", err)
	}
	permits, err := toBoolSlice(raw)
	if err != nil {
		return false, fmt.Errorf("parse validator permits: %w", err)
	}
	if v.uid < 0 || v.uid >= len(permits) {
		return false, fmt.Errorf("validator UID %d out of permit range %d", v.uid, len(permits))
	}
	permit := permits[v.uid]
	v.hasPermit = &permit
	v.lastPermitCheck = v.now()
	v.log.Info("Validator permit", "permit", permit)
	return permit, nil
}

// weightsVersionKey returns the cached weights version key, re-reading
// chain state after the TTL.
func (v *Validator) weightsVersionKey(ctx context.Context) (uint64, error) {
	if v.versionKey != nil && v.now().Sub(v.lastVersionCheck) < stateCacheTTL {
		return *v.versionKey, nil
	}
	v.log.Info("Fetching weights version key")
	raw, err := v.session.Client().QueryState(ctx, "WeightsVersionKey", v.netuid)
	if err != nil {
		return 0, fmt.Errorf("query weights version key: %w", err)
	}
	key, err := toUint64(raw)
	if err != nil {
		return 0, fmt.Errorf("parse weights version key: %w", err)
	}
	v.versionKey = &key
	v.lastVersionCheck = v.now()
	v.log.Info("Weights version key", "version_key", key)
	return key, nil
}

// handleNoPermit sleeps until the next epoch step, computed from the
// subnet tempo and the blocks elapsed since the last step.
func (v *Validator) handleNoPermit(ctx context.Context) {
	v.log.Warn("No validator permit; waiting until next epoch")
	v.daily.RecordNoPermit()
	v.notifier.Send(fmt.Sprintf(
		"Validator %s (uid %d) has no permit on subnet %d. Sleeping until next epoch.",
		v.hotkey, v.uid, v.netuid,
	), notify.LevelWarning)

	wait := registeredRetrySleep
	client := v.session.Client()
	tempo, terr := client.Tempo(ctx, v.netuid)
	raw, serr := client.QueryState(ctx, "BlocksSinceLastStep", v.netuid)
	if terr == nil && serr == nil {
		if since, perr := toUint64(raw); perr == nil && tempo > since {
			wait = time.Duration((tempo-since)*domain.BlockTime) * time.Second
		}
	}
	v.log.Info("Sleeping until next epoch", "wait", wait)
	v.sleep(ctx, wait)

	// Force a permit recheck on the next pass.
	v.hasPermit = nil
}

// SetBurnWeights submits the full weight on the burn UID once. It
// reports whether the submission succeeded.
func (v *Validator) SetBurnWeights(ctx context.Context) bool {
	versionKey, err := v.weightsVersionKey(ctx)
	if err != nil {
		v.log.Error("Failed to resolve weights version key", "error", err)
		v.session.HandleFailure(err.Error(), "weight setting")
		return false
	}

	ok, message, err := v.session.Client().SetWeights(ctx, subtensor.SetWeightsParams{
		Netuid:              v.netuid,
		UIDs:                []int{v.burnUID},
		Weights:             []float64{1.0},
		VersionKey:          versionKey,
		WaitForInclusion:    true,
		WaitForFinalization: true,
	})
	if err != nil {
		message = err.Error()
		ok = false
	}

	if !ok {
		v.onWeightFailure(ctx, message)
		return false
	}

	v.onWeightSuccess(ctx)
	return true
}

func (v *Validator) onWeightFailure(ctx context.Context, message string) {
	v.log.Error("Error setting weights", "error", message)
	metrics.WeightSetTotal.WithLabelValues("failure").Inc()

	benign := v.session.HandleFailure(message, "weight setting")
	d := v.tracker.OnFailure(message)
	if d.Class != domain.FailureBenign {
		v.daily.RecordWeightFailure()
	}
	v.recordAttempt(ctx, false, message, d.Class)

	if d.Alert {
		annotated := fmt.Sprintf("%s (network: %s)", message, v.session.CurrentNetwork())
		v.notifier.Send(notify.WeightFailureMessage(v.hotkey, v.netuid, annotated, d), notify.LevelError)
	}

	// Benign rejections resolve on their own next epoch; only real
	// failures earn the retry backoff.
	if !benign {
		v.sleep(ctx, v.cfg.RetrySleep)
	}
}

func (v *Validator) onWeightSuccess(ctx context.Context) {
	v.log.Info("Weights set successfully", "burn_uid", v.burnUID, "netuid", v.netuid)
	metrics.WeightSetTotal.WithLabelValues("success").Inc()

	v.session.HandleSuccess("Weight setting")
	v.daily.RecordWeightSet()
	if v.lifetime != nil {
		v.lifetime.RecordWeightSet()
	}
	v.recordAttempt(ctx, true, "", "")

	if v.tracker.OnSuccess() {
		v.notifier.Send(notify.WeightRecoveryMessage(v.hotkey, v.netuid), notify.LevelInfo)
	}
}

// RunOnce executes one pass of the validator loop: burn-UID refresh,
// registration and permit gates, then a weight submission. It returns
// the sleep the caller should apply before the next pass.
func (v *Validator) RunOnce(ctx context.Context) time.Duration {
	v.refreshBurnUID(ctx)

	registered, err := v.session.Client().IsHotkeyRegisteredOnSubnet(ctx, v.hotkey, v.netuid)
	if err != nil {
		v.log.Error("Registration check failed", "error", err)
		v.session.HandleFailure(err.Error(), "registration check")
		return registeredRetrySleep
	}
	if !registered {
		v.log.Warn("Hotkey not registered on subnet; skipping", "netuid", v.netuid)
		v.daily.RecordRegistrationFailure()
		return registeredRetrySleep
	}

	permit, err := v.checkPermit(ctx)
	if err != nil {
		v.log.Error("Permit check failed", "error", err)
		v.session.HandleFailure(err.Error(), "permit check")
		return registeredRetrySleep
	}
	if !permit {
		v.handleNoPermit(ctx)
		return 0
	}

	if !v.SetBurnWeights(ctx) {
		// Backoff already applied by the failure path.
		return 0
	}

	interval := time.Duration(v.cfg.SetWeightsInterval*domain.BlockTime) * time.Second
	v.log.Info("Waiting before next weight set",
		"blocks", v.cfg.SetWeightsInterval, "wait", interval)
	return interval
}

// Run loops until the context is cancelled.
func (v *Validator) Run(ctx context.Context) {
	for ctx.Err() == nil {
		wait := v.RunOnce(ctx)
		if wait > 0 {
			v.sleep(ctx, wait)
		}
	}
}

func (v *Validator) recordAttempt(ctx context.Context, success bool, errMsg string, class domain.FailureClass) {
	attempt := domain.NewOperationAttempt(domain.OpWeightSet, v.session.CurrentNetwork(), success)
	if !success {
		attempt.Class = class
		attempt.Message = errMsg
		if class != domain.FailureBenign {
			metrics.OperationFailuresTotal.WithLabelValues(string(domain.OpWeightSet), string(class)).Inc()
		}
	}
	if err := v.attempts.Record(ctx, attempt); err != nil {
		v.log.Warn("Failed to record operation attempt", "error", err)
	}
}

// toUint64 converts chain-state query results, which arrive as JSON
// numbers, into integers.
func toUint64(raw any) (uint64, error) {
	switch n := raw.(type) {
	case uint64:
		return n, nil
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case float64:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric value %T", raw)
	}
}

func toBoolSlice(raw any) ([]bool, error) {
	switch vals := raw.(type) {
	case []bool:
		return vals, nil
	case []any:
		out := make([]bool, len(vals))
		for i, item := range vals {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("unexpected permit element %T", item)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected permit list %T", raw)
	}
}
