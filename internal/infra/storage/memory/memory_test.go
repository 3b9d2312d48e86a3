package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

func TestAttemptRepo_ListRecentNewestFirst(t *testing.T) {
	repo := NewAttemptRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := domain.NewOperationAttempt(domain.OpWeightSet, domain.NetworkFinney, true)
		a.Block = uint64(100 + i)
		if err := repo.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := repo.ListRecent(ctx, domain.OpWeightSet, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Block != 102 || got[1].Block != 101 {
		t.Errorf("order = [%d %d], want [102 101]", got[0].Block, got[1].Block)
	}
}

func TestAttemptRepo_CountFailuresSinceIgnoresBenign(t *testing.T) {
	repo := NewAttemptRepo()
	ctx := context.Background()
	cutoff := time.Now().Add(-time.Hour)

	benign := domain.NewOperationAttempt(domain.OpWeightSet, domain.NetworkFinney, false)
	benign.Class = domain.FailureBenign
	critical := domain.NewOperationAttempt(domain.OpWeightSet, domain.NetworkFinney, false)
	critical.Class = domain.FailureCritical
	old := domain.NewOperationAttempt(domain.OpWeightSet, domain.NetworkFinney, false)
	old.Class = domain.FailureUnknown
	old.CreatedAt = cutoff.Add(-time.Minute)
	success := domain.NewOperationAttempt(domain.OpWeightSet, domain.NetworkFinney, true)

	for _, a := range []*domain.OperationAttempt{benign, critical, old, success} {
		if err := repo.Record(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	count, err := repo.CountFailuresSince(ctx, domain.OpWeightSet, cutoff)
	if err != nil {
		t.Fatalf("CountFailuresSince: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (critical only)", count)
	}
}
