package memory

import (
	"context"
	"errors"
	"testing"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

func testLaunch(id, tokenID string, detectedAt int64) *domain.LaunchRecord {
	return &domain.LaunchRecord{
		LaunchID:      id,
		TokenID:       tokenID,
		LaunchPrice:   0.01,
		InitialCap:    200_000,
		InitialVolume: 1_000,
		Status:        domain.LaunchStatusMonitoring,
		DetectedAt:    detectedAt,
	}
}

func TestLaunchStore_InsertAndGet(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	l := testLaunch("launch-1", "token-1", 1704067200000)
	if err := store.Insert(ctx, l); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "launch-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TokenID != "token-1" {
		t.Errorf("TokenID mismatch: got %s, want token-1", got.TokenID)
	}
	if got.Status != domain.LaunchStatusMonitoring {
		t.Errorf("Status mismatch: got %s, want monitoring", got.Status)
	}
}

func TestLaunchStore_DuplicateKey(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	l := testLaunch("launch-1", "token-1", 1704067200000)
	if err := store.Insert(ctx, l); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, testLaunch("launch-1", "token-2", 1704067300000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestLaunchStore_GetMonitoring_OrderAndLimit(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	for i, id := range []string{"launch-a", "launch-b", "launch-c"} {
		l := testLaunch(id, "token-"+id, int64(1000*(i+1)))
		if err := store.Insert(ctx, l); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	// Most recent first
	got, err := store.GetMonitoring(ctx, 2)
	if err != nil {
		t.Fatalf("GetMonitoring failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].LaunchID != "launch-c" || got[1].LaunchID != "launch-b" {
		t.Errorf("wrong order: got %s, %s", got[0].LaunchID, got[1].LaunchID)
	}
}

func TestLaunchStore_GetMonitoring_ExcludesFinalized(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testLaunch("launch-1", "token-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testLaunch("launch-2", "token-2", 2000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.TransitionStatus(ctx, "launch-1", domain.LaunchStatusMonitoring, domain.LaunchStatusFailure); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}

	got, err := store.GetMonitoring(ctx, 0)
	if err != nil {
		t.Fatalf("GetMonitoring failed: %v", err)
	}
	if len(got) != 1 || got[0].LaunchID != "launch-2" {
		t.Errorf("expected only launch-2, got %d records", len(got))
	}
}

func TestLaunchStore_TransitionStatus_Conflict(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testLaunch("launch-1", "token-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Executor wins the race: monitoring -> traded
	if err := store.TransitionStatus(ctx, "launch-1", domain.LaunchStatusMonitoring, domain.LaunchStatusTraded); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	// Monitor's later monitoring -> success must conflict, not overwrite
	err := store.TransitionStatus(ctx, "launch-1", domain.LaunchStatusMonitoring, domain.LaunchStatusSuccess)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, err := store.GetByID(ctx, "launch-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.LaunchStatusTraded {
		t.Errorf("status overwritten: got %s, want traded", got.Status)
	}
}

func TestLaunchStore_TransitionStatus_NotFound(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	err := store.TransitionStatus(ctx, "missing", domain.LaunchStatusMonitoring, domain.LaunchStatusTraded)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLaunchStore_SetOutcome_KeepsTradedStatus(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testLaunch("launch-1", "token-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.TransitionStatus(ctx, "launch-1", domain.LaunchStatusMonitoring, domain.LaunchStatusTraded); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}

	// Outcome fields land even on a traded record
	if err := store.SetOutcome(ctx, "launch-1", 0.021, 1.1, 5000); err != nil {
		t.Fatalf("SetOutcome failed: %v", err)
	}

	got, err := store.GetByID(ctx, "launch-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.LaunchStatusTraded {
		t.Errorf("status changed by SetOutcome: got %s", got.Status)
	}
	if got.FinalGain == nil || *got.FinalGain != 1.1 {
		t.Errorf("FinalGain not recorded: %v", got.FinalGain)
	}
}
