package gate

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/storage/memory"
)

func seedStrategy(t *testing.T, store *memory.StrategyStore, perf *domain.StrategyPerformance) {
	t.Helper()
	ctx := context.Background()

	err := store.Insert(ctx, &domain.Strategy{
		StrategyID: "strat-1", Name: "launch-v1", Version: 1, Active: true,
		MinMarketCap: 50_000, MinVolume: 2_000,
		EntryPercent: 0.05, MaxPositionSize: 1_000,
	})
	if err != nil {
		t.Fatalf("seed strategy: %v", err)
	}
	if perf != nil {
		perf.StrategyID = "strat-1"
		if err := store.UpsertPerformance(ctx, perf); err != nil {
			t.Fatalf("seed performance: %v", err)
		}
	}
}

func TestAllThreeConditionsRequired(t *testing.T) {
	cases := []struct {
		name string
		perf domain.StrategyPerformance
		want bool
	}{
		{"all passing", domain.StrategyPerformance{WinRate: 0.70, AvgProfit: 0.60, ReadyForLive: true}, true},
		{"at thresholds", domain.StrategyPerformance{WinRate: 0.65, AvgProfit: 0.50, ReadyForLive: true}, true},
		{"win rate short", domain.StrategyPerformance{WinRate: 0.64, AvgProfit: 0.60, ReadyForLive: true}, false},
		{"avg profit short", domain.StrategyPerformance{WinRate: 0.70, AvgProfit: 0.49, ReadyForLive: true}, false},
		{"flag unset despite good numbers", domain.StrategyPerformance{WinRate: 0.70, AvgProfit: 0.60, ReadyForLive: false}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStrategyStore()
			perf := tc.perf
			seedStrategy(t, store, &perf)

			d, err := New(store, zerolog.Nop()).Evaluate(context.Background())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Ready != tc.want {
				t.Errorf("ready = %v (%s), want %v", d.Ready, d.Reason, tc.want)
			}
			if d.Strategy == nil {
				t.Error("decision missing strategy reference")
			}
		})
	}
}

func TestNoActiveStrategyIsNotReadyNotError(t *testing.T) {
	store := memory.NewStrategyStore()

	d, err := New(store, zerolog.Nop()).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Ready {
		t.Error("ready without an active strategy")
	}
	if d.Strategy != nil {
		t.Error("decision carries a strategy that does not exist")
	}
}

func TestMissingPerformanceIsNotReadyNotError(t *testing.T) {
	store := memory.NewStrategyStore()
	seedStrategy(t, store, nil)

	d, err := New(store, zerolog.Nop()).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Ready {
		t.Error("ready without performance data")
	}
	if d.Strategy == nil {
		t.Error("decision should still reference the active strategy")
	}
}
