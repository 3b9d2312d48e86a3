package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationAttempt is one audit-log entry for a privileged chain
// operation, successful or not.
type OperationAttempt struct {
	ID        uuid.UUID
	Operation OperationKind
	Network   Network
	Success   bool
	// Class is set only for failures.
	Class     FailureClass
	Message   string
	Block     uint64
	CreatedAt time.Time
}

// NewOperationAttempt stamps a fresh attempt with an ID and timestamp.
func NewOperationAttempt(op OperationKind, network Network, success bool) *OperationAttempt {
	return &OperationAttempt{
		ID:        uuid.New(),
		Operation: op,
		Network:   network,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
}
