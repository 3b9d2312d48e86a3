package domain

// FailureClass grades an operation failure by how loudly it should be handled.
type FailureClass string

const (
	// FailureBenign is expected chain behavior (e.g. weights committed too
	// recently). No alerting, no endpoint rotation.
	FailureBenign FailureClass = "benign"
	// FailureCritical is a known-bad pattern that needs immediate attention.
	FailureCritical FailureClass = "critical"
	// FailureUnknown is anything not matching a known pattern; alerted once
	// it repeats.
	FailureUnknown FailureClass = "unknown"
)

// OperationKind names a privileged chain operation for tracking and metrics.
type OperationKind string

const (
	OpWeightSet     OperationKind = "weight_set"
	OpStakeSweep    OperationKind = "stake_sweep"
	OpStakeTransfer OperationKind = "stake_transfer"
)
