package executor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/gate"
	"launchlab/internal/health"
	"launchlab/internal/notify"
	"launchlab/internal/storage/memory"
)

type stubHealth struct {
	multiplier float64
	allow      bool
}

func (s stubHealth) ShouldTrade(context.Context, float64) bool { return s.allow }

func (s stubHealth) PositionSizeMultiplier(context.Context) float64 { return s.multiplier }

func (s stubHealth) Posture(context.Context) health.Posture { return health.PostureTradeNormally }

type stubMomentum map[string]float64

func (s stubMomentum) InitialMomentum(launchID string) (float64, bool) {
	m, ok := s[launchID]
	return m, ok
}

type fixture struct {
	strategies *memory.StrategyStore
	launches   *memory.LaunchStore
	portfolios *memory.PortfolioStore
	trades     *memory.TradeStore
	bus        *notify.Bus
	momentum   stubMomentum
	health     stubHealth
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		strategies: memory.NewStrategyStore(),
		launches:   memory.NewLaunchStore(),
		portfolios: memory.NewPortfolioStore(),
		trades:     memory.NewTradeStore(),
		bus:        notify.NewBus(),
		momentum:   stubMomentum{},
		health:     stubHealth{multiplier: 1.0, allow: true},
		clock:      time.Unix(1700000000, 0),
	}
}

func (f *fixture) executor() *Executor {
	return New(Options{
		Gate:       gate.New(f.strategies, zerolog.Nop()),
		Launches:   f.launches,
		Portfolios: f.portfolios,
		Trades:     f.trades,
		Health:     f.health,
		Momentum:   f.momentum,
		Notifier:   f.bus,
		Config:     DefaultConfig(),
		Logger:     zerolog.Nop(),
		Clock:      func() time.Time { return f.clock },
	})
}

func (f *fixture) seedReadyStrategy(t *testing.T, s *domain.Strategy) {
	t.Helper()
	ctx := context.Background()

	if s == nil {
		s = &domain.Strategy{
			StrategyID: "strat-1", Name: "launch-v1", Version: 1, Active: true,
			MinMarketCap: 50_000, MaxMarketCap: domain.LimitOf(5_000_000),
			MinVolume: 2_000, EntryPercent: 0.05, MaxPositionSize: 1_000,
		}
	}
	if err := f.strategies.Insert(ctx, s); err != nil {
		t.Fatalf("seed strategy: %v", err)
	}
	err := f.strategies.UpsertPerformance(ctx, &domain.StrategyPerformance{
		StrategyID: s.StrategyID, WinRate: 0.70, AvgProfit: 0.60, ReadyForLive: true,
	})
	if err != nil {
		t.Fatalf("seed performance: %v", err)
	}
}

func (f *fixture) seedLaunch(t *testing.T, id string, price, cap, volume float64) {
	t.Helper()
	err := f.launches.Insert(context.Background(), &domain.LaunchRecord{
		LaunchID: id, TokenID: "token-" + id,
		LaunchPrice: price, InitialCap: cap, InitialVolume: volume,
		Status: domain.LaunchStatusMonitoring, DetectedAt: f.clock.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seed launch %s: %v", id, err)
	}
}

func (f *fixture) seedPortfolio(t *testing.T, id string, cash, total float64) {
	t.Helper()
	err := f.portfolios.Insert(context.Background(), &domain.Portfolio{
		PortfolioID: id, Name: id, CashBalance: cash, TotalValue: total,
		AutoTrading: true, LaunchTrading: true,
	})
	if err != nil {
		t.Fatalf("seed portfolio %s: %v", id, err)
	}
}

func TestTwoPortfoliosEachTradeOnce(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)
	f.seedPortfolio(t, "port-b", 300, 50_000)
	events := f.bus.Subscribe(8)
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	trades, err := f.trades.GetByLaunch(ctx, "launch-1")
	if err != nil {
		t.Fatalf("GetByLaunch: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}

	sizes := map[string]float64{}
	for _, tr := range trades {
		sizes[tr.PortfolioID] = tr.TotalValue
		if tr.Side != domain.TradeSideBuy {
			t.Errorf("side = %q, want buy", tr.Side)
		}
		if tr.Quantity != tr.TotalValue/0.01 {
			t.Errorf("quantity = %v, want %v", tr.Quantity, tr.TotalValue/0.01)
		}
	}
	// port-a: min(10000x0.05, 1000, 10000x0.9) = 500
	if sizes["port-a"] != 500 {
		t.Errorf("port-a size = %v, want 500", sizes["port-a"])
	}
	// port-b: min(50000x0.05, 1000, 300x0.9) = 270
	if sizes["port-b"] != 270 {
		t.Errorf("port-b size = %v, want 270", sizes["port-b"])
	}

	a, _ := f.portfolios.GetByID(ctx, "port-a")
	if a.CashBalance != 9_500 {
		t.Errorf("port-a cash = %v, want 9500", a.CashBalance)
	}
	b, _ := f.portfolios.GetByID(ctx, "port-b")
	if b.CashBalance != 30 {
		t.Errorf("port-b cash = %v, want 30", b.CashBalance)
	}

	record, _ := f.launches.GetByID(ctx, "launch-1")
	if record.Status != domain.LaunchStatusTraded {
		t.Errorf("status = %q, want traded", record.Status)
	}

	received := 0
	for len(events) > 0 {
		e := <-events
		if e.Kind == notify.KindTradeExecuted {
			received++
		}
	}
	if received != 2 {
		t.Errorf("trade events = %d, want 2", received)
	}
}

func TestOversizedMarketCapRejected(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, nil) // max market cap $5M
	f.seedLaunch(t, "launch-big", 0.5, 6_000_000, 100_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	trades, _ := f.trades.GetByLaunch(ctx, "launch-big")
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0 for $6M cap", len(trades))
	}
	record, _ := f.launches.GetByID(ctx, "launch-big")
	if record.Status != domain.LaunchStatusMonitoring {
		t.Errorf("status = %q, want monitoring", record.Status)
	}
}

func TestUnboundedMaxCapAllowsLargeCandidate(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, &domain.Strategy{
		StrategyID: "strat-open", Name: "open", Version: 1, Active: true,
		MinMarketCap: 50_000, MaxMarketCap: domain.NoLimit(),
		MinVolume: 2_000, EntryPercent: 0.05, MaxPositionSize: 1_000,
	})
	f.seedLaunch(t, "launch-big", 0.5, 40_000_000, 100_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	trades, _ := f.trades.GetByLaunch(ctx, "launch-big")
	if len(trades) != 1 {
		t.Errorf("trades = %d, want 1 with unbounded max cap", len(trades))
	}
}

func TestZeroPriceNeverTradesNorChangesStatus(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-zero", 0, 200_000, 5_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	trades, _ := f.trades.GetByLaunch(ctx, "launch-zero")
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0", len(trades))
	}
	record, _ := f.launches.GetByID(ctx, "launch-zero")
	if record.Status != domain.LaunchStatusMonitoring {
		t.Errorf("status = %q, want monitoring unchanged", record.Status)
	}
}

func TestGateClosedSkipsTick(t *testing.T) {
	f := newFixture(t)
	// Strategy present but not ready for live
	s := &domain.Strategy{
		StrategyID: "strat-1", Name: "launch-v1", Version: 1, Active: true,
		MinMarketCap: 50_000, MinVolume: 2_000,
		EntryPercent: 0.05, MaxPositionSize: 1_000,
	}
	if err := f.strategies.Insert(context.Background(), s); err != nil {
		t.Fatalf("seed strategy: %v", err)
	}
	err := f.strategies.UpsertPerformance(context.Background(), &domain.StrategyPerformance{
		StrategyID: "strat-1", WinRate: 0.70, AvgProfit: 0.60, ReadyForLive: false,
	})
	if err != nil {
		t.Fatalf("seed performance: %v", err)
	}
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)

	if err := f.executor().RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	trades, _ := f.trades.GetByLaunch(context.Background(), "launch-1")
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0 with closed gate", len(trades))
	}
}

func TestHaltedMarketSkipsTick(t *testing.T) {
	f := newFixture(t)
	f.health = stubHealth{multiplier: 0, allow: false}
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)

	if err := f.executor().RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	trades, _ := f.trades.GetByLaunch(context.Background(), "launch-1")
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0 in halted market", len(trades))
	}
}

func TestHealthMultiplierScalesBeforeFloor(t *testing.T) {
	f := newFixture(t)
	f.health = stubHealth{multiplier: 0.5, allow: true}
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	// Unscaled size would be 80; scaled 40 drops below the $50 floor
	f.seedPortfolio(t, "port-small", 10_000, 1_600)
	// Unscaled 500; scaled 250 still trades
	f.seedPortfolio(t, "port-big", 10_000, 10_000)
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	trades, _ := f.trades.GetByLaunch(ctx, "launch-1")
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].PortfolioID != "port-big" || trades[0].TotalValue != 250 {
		t.Errorf("trade = %+v, want port-big at 250", trades[0])
	}
}

func TestAllPortfoliosBelowFloorLeavesMonitoring(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	f.seedPortfolio(t, "port-tiny", 10_000, 900) // size 45 < 50
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	record, _ := f.launches.GetByID(ctx, "launch-1")
	if record.Status != domain.LaunchStatusMonitoring {
		t.Errorf("status = %q, want monitoring (no trade succeeded)", record.Status)
	}
}

func TestMomentumFilter(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, &domain.Strategy{
		StrategyID: "strat-m", Name: "momentum", Version: 1, Active: true,
		MinMarketCap: 50_000, MinVolume: 2_000, MinMomentum: domain.LimitOf(0.10),
		EntryPercent: 0.05, MaxPositionSize: 1_000,
	})
	f.seedLaunch(t, "launch-fast", 0.01, 200_000, 5_000)
	f.seedLaunch(t, "launch-slow", 0.01, 200_000, 5_000)
	f.seedLaunch(t, "launch-new", 0.01, 200_000, 5_000)
	f.seedPortfolio(t, "port-a", 10_000, 10_000)
	f.momentum["launch-fast"] = 0.15
	f.momentum["launch-slow"] = 0.05
	// launch-new has no usable series
	ctx := context.Background()

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	for id, want := range map[string]int{"launch-fast": 1, "launch-slow": 0, "launch-new": 0} {
		trades, _ := f.trades.GetByLaunch(ctx, id)
		if len(trades) != want {
			t.Errorf("%s trades = %d, want %d", id, len(trades), want)
		}
	}
}

func TestOptedOutPortfoliosExcluded(t *testing.T) {
	f := newFixture(t)
	f.seedReadyStrategy(t, nil)
	f.seedLaunch(t, "launch-1", 0.01, 200_000, 5_000)
	ctx := context.Background()

	err := f.portfolios.Insert(ctx, &domain.Portfolio{
		PortfolioID: "port-auto-only", CashBalance: 10_000, TotalValue: 10_000,
		AutoTrading: true, LaunchTrading: false,
	})
	if err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}
	err = f.portfolios.Insert(ctx, &domain.Portfolio{
		PortfolioID: "port-launch-only", CashBalance: 10_000, TotalValue: 10_000,
		AutoTrading: false, LaunchTrading: true,
	})
	if err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}

	if err := f.executor().RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	trades, _ := f.trades.GetByLaunch(ctx, "launch-1")
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0 (both flags required)", len(trades))
	}
}
