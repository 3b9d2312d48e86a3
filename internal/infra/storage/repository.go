// Package storage defines the persistence contracts for the operation
// audit log.
package storage

import (
	"context"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// AttemptRepository records every privileged chain operation attempted,
// successful or not, for post-hoc investigation.
type AttemptRepository interface {
	// Record saves an attempt.
	Record(ctx context.Context, attempt *domain.OperationAttempt) error

	// ListRecent returns the most recent attempts for an operation,
	// newest first.
	ListRecent(ctx context.Context, op domain.OperationKind, limit int) ([]*domain.OperationAttempt, error)

	// CountFailuresSince counts non-benign failures newer than the cutoff.
	CountFailuresSince(ctx context.Context, op domain.OperationKind, since time.Time) (int, error)
}
