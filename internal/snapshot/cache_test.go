package snapshot_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"teampulse/internal/risk"
	"teampulse/internal/snapshot"
)

func TestGetComputesOnceUntilInvalidated(t *testing.T) {
	var calls atomic.Int64
	cache := snapshot.NewCache(func(ctx context.Context, orgID string) risk.Snapshot {
		n := calls.Add(1)
		return risk.Snapshot{AvgCompletionDays: float64(n)}
	}, nil)
	ctx := context.Background()

	first := cache.Get(ctx, "org-1")
	if first.AvgCompletionDays != 1 {
		t.Fatalf("first get = %v", first.AvgCompletionDays)
	}
	if again := cache.Get(ctx, "org-1"); again.AvgCompletionDays != 1 {
		t.Fatalf("cached get = %v", again.AvgCompletionDays)
	}
	if calls.Load() != 1 {
		t.Fatalf("compute calls = %d", calls.Load())
	}

	cache.Invalidate("org-1")
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := cache.Get(ctx, "org-1")
		if snap.AvgCompletionDays > 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never refreshed, still %v", snap.AvgCompletionDays)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOrgsAreCachedIndependently(t *testing.T) {
	var calls atomic.Int64
	cache := snapshot.NewCache(func(ctx context.Context, orgID string) risk.Snapshot {
		calls.Add(1)
		return risk.Snapshot{TakenAt: time.Now()}
	}, nil)
	ctx := context.Background()

	cache.Get(ctx, "org-1")
	cache.Get(ctx, "org-2")
	if calls.Load() != 2 {
		t.Fatalf("compute calls = %d", calls.Load())
	}
	cache.Get(ctx, "org-1")
	cache.Get(ctx, "org-2")
	if calls.Load() != 2 {
		t.Fatalf("compute calls after cached reads = %d", calls.Load())
	}
}
