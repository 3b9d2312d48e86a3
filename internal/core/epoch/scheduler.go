// Package epoch detects subnet epoch boundaries from chain height and drives
// the privileged action exactly once per boundary crossing.
package epoch

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/metrics"
)

// HeightSource supplies the chain readings the scheduler needs. All calls may
// block and may fail transiently; failures never stop the polling loop.
type HeightSource interface {
	// CurrentBlock returns the current chain height.
	CurrentBlock(ctx context.Context) (uint64, error)
	// NextEpochStartBlock returns the height of the next epoch boundary at
	// or after the given block. ok is false when the chain cannot provide it.
	NextEpochStartBlock(ctx context.Context, block uint64) (next uint64, ok bool, err error)
	// Tempo returns the subnet's blocks-per-epoch.
	Tempo(ctx context.Context) (uint64, error)
}

// Scheduler tracks epoch boundaries with two mutually exclusive strategies:
// a known next-epoch height when the chain provides one, or tempo-based index
// arithmetic as fallback. A known height is always preferred.
type Scheduler struct {
	src HeightSource
	log *slog.Logger

	nextEpochBlock uint64
	hasNextEpoch   bool

	tempo          uint64
	lastEpochIndex uint64
	hasLastIndex   bool
}

// NewScheduler creates a scheduler. Call Prime before the first Poll to seed
// the next-epoch height; without it the first Poll falls back to tempo mode.
func NewScheduler(src HeightSource, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{src: src, log: log}
}

// Prime fetches the initial next-epoch boundary. Failure is not fatal; the
// scheduler degrades to tempo mode.
func (s *Scheduler) Prime(ctx context.Context) {
	block, err := s.src.CurrentBlock(ctx)
	if err != nil {
		s.log.Warn("Failed to fetch current block while priming; using tempo fallback", "error", err)
		return
	}
	s.rearm(ctx, block)
	if s.hasNextEpoch {
		s.log.Info("Next epoch boundary known", "block", s.nextEpochBlock)
	} else {
		s.log.Warn("Unable to determine next epoch start; falling back to tempo-based polling")
	}
}

// Poll performs one boundary check. It returns true when an epoch boundary
// was crossed since the previous call. Transient read failures log and
// return false.
func (s *Scheduler) Poll(ctx context.Context) bool {
	current, err := s.src.CurrentBlock(ctx)
	if err != nil {
		s.log.Error("Failed to fetch current block", "error", err)
		return false
	}
	s.log.Debug("Polled chain height", "block", current)
	metrics.CurrentBlock.Set(float64(current))

	if s.hasNextEpoch {
		if current < s.nextEpochBlock {
			return false
		}
		// Boundary crossed; re-arm for the next cycle.
		s.rearm(ctx, current)
		metrics.EpochTriggersTotal.Inc()
		return true
	}

	return s.pollTempo(ctx, current)
}

// pollTempo runs the fallback strategy: trigger when the epoch index
// (height / tempo) increases. The first observation only records the index.
func (s *Scheduler) pollTempo(ctx context.Context, current uint64) bool {
	if s.tempo == 0 {
		tempo, err := s.src.Tempo(ctx)
		if err != nil {
			s.log.Error("Failed to fetch tempo", "error", err)
			return false
		}
		if tempo == 0 {
			s.log.Error("Chain reported zero tempo; cannot compute epoch index")
			return false
		}
		s.tempo = tempo
		s.log.Info("Subnet tempo fetched", "blocks_per_epoch", tempo)
	}

	index := current / s.tempo
	s.log.Debug("Computed epoch index", "index", index, "tempo", s.tempo)

	if !s.hasLastIndex {
		s.lastEpochIndex = index
		s.hasLastIndex = true
		return false
	}
	if index > s.lastEpochIndex {
		s.lastEpochIndex = index
		metrics.EpochTriggersTotal.Inc()
		return true
	}
	return false
}

// rearm recomputes the next boundary height after a trigger. When the source
// cannot provide one the scheduler drops to tempo mode until it can.
func (s *Scheduler) rearm(ctx context.Context, block uint64) {
	next, ok, err := s.src.NextEpochStartBlock(ctx, block)
	if err != nil {
		s.log.Error("Failed to compute next epoch start", "error", err)
		s.hasNextEpoch = false
		return
	}
	s.hasNextEpoch = ok
	if ok {
		s.nextEpochBlock = next
	}
}

// Run polls until ctx is cancelled, invoking onEpoch once per boundary
// crossing. The wait between ticks is the sole cancellation checkpoint.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, onEpoch func(ctx context.Context)) {
	s.log.Debug("Starting epoch monitor", "poll_interval", interval)
	for ctx.Err() == nil {
		if s.Poll(ctx) {
			onEpoch(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
