package memory

import (
	"context"
	"errors"
	"testing"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

func TestPortfolioStore_ListLaunchTraders(t *testing.T) {
	store := NewPortfolioStore()
	ctx := context.Background()

	portfolios := []*domain.Portfolio{
		{PortfolioID: "pf-both", CashBalance: 1000, AutoTrading: true, LaunchTrading: true},
		{PortfolioID: "pf-auto-only", CashBalance: 1000, AutoTrading: true, LaunchTrading: false},
		{PortfolioID: "pf-launch-only", CashBalance: 1000, AutoTrading: false, LaunchTrading: true},
		{PortfolioID: "pf-neither", CashBalance: 1000},
	}
	for _, p := range portfolios {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert %s failed: %v", p.PortfolioID, err)
		}
	}

	got, err := store.ListLaunchTraders(ctx)
	if err != nil {
		t.Fatalf("ListLaunchTraders failed: %v", err)
	}

	// Both flags are independent opt-ins; only pf-both qualifies
	if len(got) != 1 || got[0].PortfolioID != "pf-both" {
		t.Errorf("expected only pf-both, got %d portfolios", len(got))
	}
}

func TestPortfolioStore_AdjustCash(t *testing.T) {
	store := NewPortfolioStore()
	ctx := context.Background()

	p := &domain.Portfolio{PortfolioID: "pf-1", CashBalance: 100}
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.AdjustCash(ctx, "pf-1", -40); err != nil {
		t.Fatalf("AdjustCash failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pf-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CashBalance != 60 {
		t.Errorf("CashBalance = %v, want 60", got.CashBalance)
	}
}

func TestPortfolioStore_AdjustCash_Overdraw(t *testing.T) {
	store := NewPortfolioStore()
	ctx := context.Background()

	p := &domain.Portfolio{PortfolioID: "pf-1", CashBalance: 100}
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.AdjustCash(ctx, "pf-1", -150)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, _ := store.GetByID(ctx, "pf-1")
	if got.CashBalance != 100 {
		t.Errorf("balance mutated on failed adjust: %v", got.CashBalance)
	}
}
