package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// AttemptRepo persists the operation audit log in PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

type attemptRow struct {
	ID        uuid.UUID `db:"id"`
	Operation string    `db:"operation"`
	Network   string    `db:"network"`
	Success   bool      `db:"success"`
	Class     string    `db:"class"`
	Message   string    `db:"message"`
	Block     int64     `db:"block"`
	CreatedAt time.Time `db:"created_at"`
}

// Record saves an attempt to the audit log.
func (r *AttemptRepo) Record(ctx context.Context, attempt *domain.OperationAttempt) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO operation_attempts (id, operation, network, success, class, message, block, created_at)
		VALUES (:id, :operation, :network, :success, :class, :message, :block, :created_at)`,
		attemptRow{
			ID:        attempt.ID,
			Operation: string(attempt.Operation),
			Network:   string(attempt.Network),
			Success:   attempt.Success,
			Class:     string(attempt.Class),
			Message:   attempt.Message,
			Block:     int64(attempt.Block),
			CreatedAt: attempt.CreatedAt,
		})
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ListRecent returns the most recent attempts for an operation, newest
// first.
func (r *AttemptRepo) ListRecent(
	ctx context.Context,
	op domain.OperationKind,
	limit int,
) ([]*domain.OperationAttempt, error) {
	var rows []attemptRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, operation, network, success, class, message, block, created_at
		FROM operation_attempts
		WHERE operation = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(op), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	attempts := make([]*domain.OperationAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, &domain.OperationAttempt{
			ID:        row.ID,
			Operation: domain.OperationKind(row.Operation),
			Network:   domain.Network(row.Network),
			Success:   row.Success,
			Class:     domain.FailureClass(row.Class),
			Message:   row.Message,
			Block:     uint64(row.Block),
			CreatedAt: row.CreatedAt,
		})
	}
	return attempts, nil
}

// CountFailuresSince counts non-benign failures for an operation newer
// than the cutoff.
func (r *AttemptRepo) CountFailuresSince(
	ctx context.Context,
	op domain.OperationKind,
	since time.Time,
) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM operation_attempts
		WHERE operation = $1 AND success = FALSE AND class <> $2 AND created_at > $3`,
		string(op), string(domain.FailureBenign), since)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}
