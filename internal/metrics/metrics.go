package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WeightSetTotal tracks weight-setting submissions by result.
	WeightSetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valiburn_weight_set_total",
			Help: "Total number of weight-setting submissions",
		},
		[]string{"result"},
	)

	// StakeSweepTotal tracks stake sweep attempts by step and result.
	StakeSweepTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valiburn_stake_sweep_total",
			Help: "Total number of stake sweep and transfer attempts",
		},
		[]string{"step", "result"},
	)

	// OperationFailuresTotal tracks non-benign operation failures by class.
	// Benign failures are invisible here.
	OperationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valiburn_operation_failures_total",
			Help: "Total number of non-benign operation failures",
		},
		[]string{"operation", "class"},
	)

	// NetworkRotationsTotal tracks failure-driven endpoint rotations.
	NetworkRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valiburn_network_rotations_total",
			Help: "Total number of subtensor network rotations",
		},
		[]string{"from", "to"},
	)

	// EpochTriggersTotal tracks epoch boundary crossings acted upon.
	EpochTriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valiburn_epoch_triggers_total",
			Help: "Total number of epoch boundary triggers",
		},
	)

	// CurrentBlock tracks the last observed chain height.
	CurrentBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "valiburn_current_block",
			Help: "Last observed chain height",
		},
	)

	// AlertsSentTotal tracks alerts actually delivered to the sink.
	AlertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valiburn_alerts_sent_total",
			Help: "Total number of alerts sent",
		},
		[]string{"level"},
	)
)
