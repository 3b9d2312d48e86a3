// Package memory provides an in-memory attempt repository. Used when no
// database is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// AttemptRepo keeps the audit log in memory, bounded to the most recent
// entries per operation.
type AttemptRepo struct {
	mu       sync.RWMutex
	attempts map[domain.OperationKind][]*domain.OperationAttempt
	limit    int
}

func NewAttemptRepo() *AttemptRepo {
	return &AttemptRepo{
		attempts: make(map[domain.OperationKind][]*domain.OperationAttempt),
		limit:    1000,
	}
}

func (r *AttemptRepo) Record(ctx context.Context, attempt *domain.OperationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.attempts[attempt.Operation], attempt)
	if len(list) > r.limit {
		list = list[len(list)-r.limit:]
	}
	r.attempts[attempt.Operation] = list
	return nil
}

func (r *AttemptRepo) ListRecent(
	ctx context.Context,
	op domain.OperationKind,
	limit int,
) ([]*domain.OperationAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.attempts[op]
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]*domain.OperationAttempt, 0, limit)
	for i := len(list) - 1; i >= len(list)-limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (r *AttemptRepo) CountFailuresSince(
	ctx context.Context,
	op domain.OperationKind,
	since time.Time,
) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, a := range r.attempts[op] {
		if !a.Success && a.Class != domain.FailureBenign && a.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}
