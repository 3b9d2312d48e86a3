// Package miner implements the stake sweeper: on every epoch boundary it
// moves all stake from the wallet's primary hotkey into the aggregator
// hotkey and transfers the aggregated stake to the destination coldkey.
package miner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/config"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/memory"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/subtensor"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/metrics"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
)

// ChainSession provides the active chain client plus failure-driven
// endpoint rotation. Satisfied by subtensor.FailoverManager.
type ChainSession interface {
	Client() subtensor.Client
	CurrentNetwork() domain.Network
	HandleFailure(errMsg, operation string) bool
	HandleSuccess(operation string)
}

// Options wires a StakeManager. Nil collaborators fall back to inert
// defaults so tests and webhook-less deployments stay simple.
type Options struct {
	Session       ChainSession
	Coldkey       string
	PrimaryHotkey string
	Netuid        int
	Config        config.MinerConfig
	Notifier      notify.Notifier
	Daily         *notify.MinerDaily
	Lifetime      *notify.LifetimeRecorder
	Attempts      storage.AttemptRepository
	// Trackers feed health reporting; keyed by operation, all optional.
	Trackers map[domain.OperationKind]*failure.Tracker
	Log      *slog.Logger
}

// StakeManager owns the sweep-and-transfer workflow.
type StakeManager struct {
	session       ChainSession
	coldkey       string
	primaryHotkey string
	netuid        int
	cfg           config.MinerConfig
	notifier      notify.Notifier
	daily         *notify.MinerDaily
	lifetime      *notify.LifetimeRecorder
	attempts      storage.AttemptRepository
	trackers      map[domain.OperationKind]*failure.Tracker
	log           *slog.Logger
}

func NewStakeManager(opts Options) *StakeManager {
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Daily == nil {
		opts.Daily = notify.NewMinerDaily()
	}
	if opts.Attempts == nil {
		opts.Attempts = memory.NewAttemptRepo()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &StakeManager{
		session:       opts.Session,
		coldkey:       opts.Coldkey,
		primaryHotkey: opts.PrimaryHotkey,
		netuid:        opts.Netuid,
		cfg:           opts.Config,
		notifier:      opts.Notifier,
		daily:         opts.Daily,
		lifetime:      opts.Lifetime,
		attempts:      opts.Attempts,
		trackers:      opts.Trackers,
		log:           opts.Log,
	}
}

// OwnedHotkeys lists the hotkeys owned by the wallet's coldkey. Failures
// are logged and yield an empty list; ownership is informational only.
func (m *StakeManager) OwnedHotkeys(ctx context.Context) []string {
	hotkeys, err := m.session.Client().GetOwnedHotkeys(ctx, m.coldkey)
	if err != nil {
		m.log.Error("Failed to retrieve owned hotkeys", "error", err)
		return nil
	}
	return hotkeys
}

// FetchStake returns the stake on a hotkey under the wallet's coldkey.
func (m *StakeManager) FetchStake(ctx context.Context, hotkey string) (domain.Balance, error) {
	stake, err := m.session.Client().GetStake(ctx, m.coldkey, hotkey, m.netuid)
	if err != nil {
		return 0, fmt.Errorf("query stake for hotkey %s on netuid %d: %w", hotkey, m.netuid, err)
	}
	return stake, nil
}

// SnapshotStakes reads the current stake for each hotkey. Hotkeys whose
// stake cannot be read are skipped.
func (m *StakeManager) SnapshotStakes(ctx context.Context, hotkeys []string) []domain.StakeSnapshot {
	snapshots := make([]domain.StakeSnapshot, 0, len(hotkeys))
	for _, hotkey := range hotkeys {
		stake, err := m.FetchStake(ctx, hotkey)
		if err != nil {
			m.log.Error("Stake snapshot read failed", "hotkey", hotkey, "error", err)
			continue
		}
		snapshots = append(snapshots, domain.StakeSnapshot{Hotkey: hotkey, Stake: stake})
	}
	return snapshots
}

// RelevantHotkeys returns the hotkeys the sweeper actively manages
// (primary and aggregator), deduplicated and in order.
func (m *StakeManager) RelevantHotkeys() []string {
	var ordered []string
	for _, candidate := range []string{m.primaryHotkey, m.cfg.AggregatorHotkey} {
		if candidate == "" {
			continue
		}
		dup := false
		for _, seen := range ordered {
			if seen == candidate {
				dup = true
				break
			}
		}
		if !dup {
			ordered = append(ordered, candidate)
		}
	}
	return ordered
}

// SweepToAggregator moves the primary hotkey's full stake to the
// aggregator hotkey. Skipped when no primary hotkey is configured, the
// primary is the aggregator itself, or there is nothing to move.
func (m *StakeManager) SweepToAggregator(ctx context.Context) bool {
	if m.primaryHotkey == "" {
		m.log.Debug("No primary hotkey configured; skipping sweep")
		return false
	}
	if m.primaryHotkey == m.cfg.AggregatorHotkey {
		m.log.Debug("Primary hotkey matches aggregator; skipping sweep to avoid self-transfer")
		return false
	}

	stake, err := m.FetchStake(ctx, m.primaryHotkey)
	if err != nil || stake.IsZero() {
		m.log.Debug("Skipping primary hotkey sweep",
			"hotkey", m.primaryHotkey, "stake", stake, "error", err)
		return false
	}

	m.log.Info("Moving stake to aggregator",
		"amount", stake, "from", m.primaryHotkey,
		"to", m.cfg.AggregatorHotkey, "netuid", m.netuid)

	ok, err := m.session.Client().MoveStake(ctx, subtensor.MoveStakeParams{
		OriginHotkey:      m.primaryHotkey,
		DestinationHotkey: m.cfg.AggregatorHotkey,
		OriginNetuid:      m.netuid,
		DestinationNetuid: m.netuid,
		MoveAllStake:      true,
	})
	if err != nil {
		m.log.Error("Failed to move stake", "from", m.primaryHotkey,
			"to", m.cfg.AggregatorHotkey, "error", err)
		ok = false
	}

	if ok {
		metrics.StakeSweepTotal.WithLabelValues("sweep", "success").Inc()
		m.daily.RecordSweep(m.primaryHotkey, stake, true)
		if m.lifetime != nil {
			m.lifetime.RecordSweep()
		}
		m.session.HandleSuccess("stake sweep")
		m.recordAttempt(ctx, domain.OpStakeSweep, true, "")
		return true
	}

	errMsg := "move_stake extrinsic failed"
	if err != nil {
		errMsg = err.Error()
	}
	metrics.StakeSweepTotal.WithLabelValues("sweep", "failure").Inc()
	m.daily.RecordSweep(m.primaryHotkey, 0, false)
	m.notifier.Send(fmt.Sprintf(
		"❌ Stake sweep failed\nFrom: %s\nTo: %s\nNetuid: %d",
		domain.TruncateAddress(m.primaryHotkey),
		domain.TruncateAddress(m.cfg.AggregatorHotkey),
		m.netuid,
	), notify.LevelError)
	m.session.HandleFailure(errMsg, "stake sweep")
	m.recordAttempt(ctx, domain.OpStakeSweep, false, errMsg)
	return false
}

// TransferAggregatedStake moves everything on the aggregator hotkey to
// the destination coldkey.
func (m *StakeManager) TransferAggregatedStake(ctx context.Context) bool {
	stake, err := m.FetchStake(ctx, m.cfg.AggregatorHotkey)
	if err != nil {
		m.log.Error("Stake fetch for aggregator hotkey failed; aborting transfer",
			"hotkey", m.cfg.AggregatorHotkey, "error", err)
		return false
	}
	if stake.IsZero() {
		m.log.Info("Aggregator hotkey holds no stake; skipping transfer",
			"hotkey", m.cfg.AggregatorHotkey, "netuid", m.netuid)
		return false
	}

	m.log.Info("Transferring aggregated stake",
		"amount", stake, "from", m.cfg.AggregatorHotkey,
		"to", m.cfg.DestinationColdkey, "netuid", m.netuid)

	ok, err := m.session.Client().TransferStake(ctx, subtensor.TransferStakeParams{
		DestinationColdkey:  m.cfg.DestinationColdkey,
		Hotkey:              m.cfg.AggregatorHotkey,
		OriginNetuid:        m.netuid,
		DestinationNetuid:   m.netuid,
		Amount:              stake,
		WaitForInclusion:    true,
		WaitForFinalization: m.cfg.WaitFinalization,
	})
	if err != nil {
		m.log.Error("Stake transfer failed",
			"from", m.cfg.AggregatorHotkey, "to", m.cfg.DestinationColdkey, "error", err)
		metrics.StakeSweepTotal.WithLabelValues("transfer", "failure").Inc()
		m.daily.RecordTransfer(0, false)
		m.session.HandleFailure(err.Error(), "stake transfer")
		m.recordAttempt(ctx, domain.OpStakeTransfer, false, err.Error())
		return false
	}

	if ok {
		m.log.Info("Stake transfer extrinsic succeeded")
		metrics.StakeSweepTotal.WithLabelValues("transfer", "success").Inc()
		m.daily.RecordTransfer(stake, true)
		m.session.HandleSuccess("stake transfer")
		m.recordAttempt(ctx, domain.OpStakeTransfer, true, "")
		return true
	}

	m.log.Error("Stake transfer extrinsic failed on chain")
	metrics.StakeSweepTotal.WithLabelValues("transfer", "failure").Inc()
	m.daily.RecordTransfer(0, false)
	m.notifier.Send(fmt.Sprintf(
		"❌ Stake transfer failed\nAmount: %s\nFrom: %s\nTo: %s\nNetuid: %d",
		stake,
		domain.TruncateAddress(m.cfg.AggregatorHotkey),
		domain.TruncateAddress(m.cfg.DestinationColdkey),
		m.netuid,
	), notify.LevelError)
	m.session.HandleFailure("transfer_stake extrinsic failed on chain", "stake transfer")
	m.recordAttempt(ctx, domain.OpStakeTransfer, false, "transfer_stake extrinsic failed on chain")
	return false
}

// ProcessEpoch runs the sweep-then-transfer sequence at an epoch boundary.
func (m *StakeManager) ProcessEpoch(ctx context.Context) {
	m.log.Info("Epoch boundary reached; sweeping and transferring stake")
	m.SweepToAggregator(ctx)
	m.TransferAggregatedStake(ctx)
}

func (m *StakeManager) recordAttempt(ctx context.Context, op domain.OperationKind, success bool, errMsg string) {
	if tracker := m.trackers[op]; tracker != nil {
		if success {
			tracker.OnSuccess()
		} else {
			tracker.OnFailure(errMsg)
		}
	}

	attempt := domain.NewOperationAttempt(op, m.session.CurrentNetwork(), success)
	if !success {
		attempt.Class = failure.Classify(errMsg)
		attempt.Message = errMsg
		if attempt.Class != domain.FailureBenign {
			metrics.OperationFailuresTotal.WithLabelValues(string(op), string(attempt.Class)).Inc()
		}
	}
	if err := m.attempts.Record(ctx, attempt); err != nil {
		m.log.Warn("Failed to record operation attempt", "operation", op, "error", err)
	}
}
