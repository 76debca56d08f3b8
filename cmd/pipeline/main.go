// Package main runs the launch pipeline end to end against in-memory
// stores and a fixture feed, driving a simulated clock through a full
// observation window. Useful for demos and for eyeballing the wiring
// without external services.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/detector"
	"launchlab/internal/domain"
	"launchlab/internal/executor"
	"launchlab/internal/gate"
	"launchlab/internal/health"
	"launchlab/internal/marketdata"
	"launchlab/internal/marketdata/stub"
	"launchlab/internal/monitor"
	"launchlab/internal/notify"
	"launchlab/internal/storage/memory"
)

func main() {
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	// Stores
	tokens := memory.NewTokenStore()
	launches := memory.NewLaunchStore()
	analyses := memory.NewLaunchAnalysisStore()
	strategies := memory.NewStrategyStore()
	portfolios := memory.NewPortfolioStore()
	trades := memory.NewTradeStore()
	archive := memory.NewSnapshotArchive()

	if err := seed(ctx, strategies, portfolios); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	// Fixture feed: MOON doubles over the hour, DUST bleeds out
	gateway := stub.NewGateway()
	gateway.SetTokens([]marketdata.MarketToken{
		{ExternalID: "pair-moon", Symbol: "MOON", Name: "Moon Coin",
			PriceUSD: 0.010, MarketCap: 200_000, Volume24h: 5_000, Change24h: 0.15},
		{ExternalID: "pair-dust", Symbol: "DUST", Name: "Dust",
			PriceUSD: 0.002, MarketCap: 80_000, Volume24h: 3_000, Change24h: -0.20},
		{ExternalID: "pair-idle", Symbol: "IDLE", Name: "Idle Token",
			PriceUSD: 1.50, MarketCap: 4_000_000, Volume24h: 90_000, Change24h: 0.02},
	})

	bus := notify.NewBus()
	sink := notify.NewLogSink(bus.Subscribe(64), log)

	det := detector.New(detector.Options{
		Gateway: gateway, Tokens: tokens, Launches: launches,
		Notifier: bus, Config: detector.DefaultConfig(),
		Logger: log, Clock: clock,
	})
	mon := monitor.New(monitor.Options{
		Tokens: tokens, Launches: launches, Analyses: analyses, Archive: archive,
		Config: monitor.DefaultConfig(), Logger: log, Clock: clock,
	})
	exec := executor.New(executor.Options{
		Gate:     gate.New(strategies, log),
		Launches: launches, Portfolios: portfolios, Trades: trades,
		Health:   health.NewMonitor(health.MonitorOptions{Gateway: gateway, Logger: log, Clock: clock}),
		Momentum: mon, Notifier: bus,
		Config:   executor.DefaultConfig(), Logger: log, Clock: clock,
	})

	fmt.Println("=== Launch Pipeline (simulated hour) ===")

	// Price paths per 2-minute step, interpolated linearly
	moonPath := pricePath(0.010, 0.021, 30)
	dustPath := pricePath(0.002, 0.0009, 30)

	for step := 0; step <= 30; step++ {
		gateway.SetPrice("pair-moon", moonPath[step], 200_000*moonPath[step]/0.010)
		gateway.SetPrice("pair-dust", dustPath[step], 80_000*dustPath[step]/0.002)

		if err := det.RunOnce(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "detector: %v\n", err)
		}
		if err := mon.RunOnce(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		}
		if err := exec.RunOnce(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "executor: %v\n", err)
		}

		now = now.Add(2 * time.Minute)
	}

	printSummary(ctx, launches, analyses, trades, portfolios)

	bus.Close()
	sink.Wait()
}

func seed(ctx context.Context, strategies *memory.StrategyStore, portfolios *memory.PortfolioStore) error {
	err := strategies.Insert(ctx, &domain.Strategy{
		StrategyID: "launch-v1", Name: "launch entries v1", Version: 1, Active: true,
		MinMarketCap: 50_000, MaxMarketCap: domain.LimitOf(5_000_000), MinVolume: 2_000,
		EntryPercent: 0.05, MaxPositionSize: 1_000,
	})
	if err != nil {
		return err
	}
	err = strategies.UpsertPerformance(ctx, &domain.StrategyPerformance{
		StrategyID: "launch-v1", TotalTrades: 40,
		WinRate: 0.70, AvgProfit: 0.62, ReadyForLive: true,
	})
	if err != nil {
		return err
	}

	for _, p := range []*domain.Portfolio{
		{PortfolioID: "alpha", Name: "alpha", CashBalance: 10_000, TotalValue: 10_000,
			AutoTrading: true, LaunchTrading: true},
		{PortfolioID: "beta", Name: "beta", CashBalance: 2_500, TotalValue: 25_000,
			AutoTrading: true, LaunchTrading: true},
		{PortfolioID: "observer", Name: "observer", CashBalance: 50_000, TotalValue: 50_000,
			AutoTrading: true, LaunchTrading: false},
	} {
		if err := portfolios.Insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// pricePath interpolates a price linearly over steps+1 points.
func pricePath(from, to float64, steps int) []float64 {
	path := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		path[i] = from + (to-from)*float64(i)/float64(steps)
	}
	return path
}

func printSummary(ctx context.Context, launches *memory.LaunchStore, analyses *memory.LaunchAnalysisStore, trades *memory.TradeStore, portfolios *memory.PortfolioStore) {
	fmt.Println("\n=== Results ===")

	for _, id := range []string{"alpha", "beta", "observer"} {
		p, err := portfolios.GetByID(ctx, id)
		if err != nil {
			continue
		}
		fmt.Printf("portfolio %-9s cash $%.2f\n", p.PortfolioID, p.CashBalance)

		portfolioTrades, _ := trades.GetByPortfolio(ctx, id)
		for _, tr := range portfolioTrades {
			fmt.Printf("  %s %.0f units @ $%.4f ($%.2f)\n", tr.Side, tr.Quantity, tr.Price, tr.TotalValue)
		}
	}

	fmt.Println()
	records, _ := launches.GetMonitoring(ctx, 0)
	fmt.Printf("still monitoring: %d\n", len(records))

	for _, tr := range allLaunchIDs(ctx, trades) {
		record, err := launches.GetByID(ctx, tr)
		if err != nil {
			continue
		}
		fmt.Printf("launch %s... status=%s", record.LaunchID[:12], record.Status)
		if record.FinalGain != nil {
			fmt.Printf(" final_gain=%+.0f%%", *record.FinalGain*100)
		}
		fmt.Println()
		if a, err := analyses.GetByLaunchID(ctx, record.LaunchID); err == nil {
			fmt.Printf("  analysis: %s\n", a.SuccessFactors)
		}
	}
}

func allLaunchIDs(ctx context.Context, trades *memory.TradeStore) []string {
	seen := map[string]bool{}
	var ids []string
	for _, portfolio := range []string{"alpha", "beta"} {
		portfolioTrades, _ := trades.GetByPortfolio(ctx, portfolio)
		for _, tr := range portfolioTrades {
			if tr.LaunchID != nil && !seen[*tr.LaunchID] {
				seen[*tr.LaunchID] = true
				ids = append(ids, *tr.LaunchID)
			}
		}
	}
	return ids
}
