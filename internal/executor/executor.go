// Package executor turns eligible launch records into paper trades across
// every opted-in portfolio.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/gate"
	"launchlab/internal/health"
	"launchlab/internal/idhash"
	"launchlab/internal/notify"
	"launchlab/internal/observability"
	"launchlab/internal/storage"
)

// cashUsableFraction caps how much of a portfolio's cash one entry may take.
const cashUsableFraction = 0.9

// MomentumSource exposes the live first-quarter momentum of a monitored
// launch. Implemented by the performance monitor.
type MomentumSource interface {
	InitialMomentum(launchID string) (float64, bool)
}

// Config holds the execution parameters.
type Config struct {
	// CandidateLimit bounds how many recent monitoring records one tick
	// inspects.
	CandidateLimit int
	// MinTradeSize is the floor below which a computed position is
	// skipped (USD).
	MinTradeSize float64
	// EntryConfidence is the confidence presented to the market health
	// signal before a tick trades.
	EntryConfidence float64
}

// DefaultConfig returns the standard execution parameters.
func DefaultConfig() Config {
	return Config{
		CandidateLimit:  10,
		MinTradeSize:    50,
		EntryConfidence: 0.6,
	}
}

// Options configures an Executor.
type Options struct {
	Gate       *gate.Gate
	Launches   storage.LaunchStore
	Portfolios storage.PortfolioStore
	Trades     storage.TradeStore
	Health     health.Signal
	Momentum   MomentumSource
	Notifier   notify.Publisher
	Config     Config
	Logger     zerolog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Executor matches recent monitoring launches against the active strategy's
// filters and sizes positions per portfolio.
type Executor struct {
	gate       *gate.Gate
	launches   storage.LaunchStore
	portfolios storage.PortfolioStore
	trades     storage.TradeStore
	health     health.Signal
	momentum   MomentumSource
	notifier   notify.Publisher
	config     Config
	log        zerolog.Logger
	clock      func() time.Time
}

// New creates an Executor.
func New(opts Options) *Executor {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	config := opts.Config
	if config.CandidateLimit <= 0 {
		config.CandidateLimit = DefaultConfig().CandidateLimit
	}

	return &Executor{
		gate:       opts.Gate,
		launches:   opts.Launches,
		portfolios: opts.Portfolios,
		trades:     opts.Trades,
		health:     opts.Health,
		momentum:   opts.Momentum,
		notifier:   opts.Notifier,
		config:     config,
		log:        opts.Logger.With().Str("component", "executor").Logger(),
		clock:      clock,
	}
}

// Status describes the executor for operational dashboards.
type Status struct {
	CandidateLimit  int     `json:"candidate_limit"`
	MinTradeSize    float64 `json:"min_trade_size"`
	EntryConfidence float64 `json:"entry_confidence"`
}

// Status reports the configured execution parameters.
func (e *Executor) Status() Status {
	return Status{
		CandidateLimit:  e.config.CandidateLimit,
		MinTradeSize:    e.config.MinTradeSize,
		EntryConfidence: e.config.EntryConfidence,
	}
}

// RunOnce executes one evaluation tick. Gate readiness and the market health
// posture are re-checked every tick; a candidate or portfolio that fails is
// skipped without aborting its siblings.
func (e *Executor) RunOnce(ctx context.Context) error {
	decision, err := e.gate.Evaluate(ctx)
	if err != nil {
		return fmt.Errorf("evaluate gate: %w", err)
	}
	if !decision.Ready {
		observability.DefaultMetrics.ExecutionCycles.WithLabelValues("gate_closed").Inc()
		e.log.Debug().Str("reason", decision.Reason).Msg("gate closed, skipping tick")
		return nil
	}

	multiplier := e.health.PositionSizeMultiplier(ctx)
	if multiplier <= 0 || !e.health.ShouldTrade(ctx, e.config.EntryConfidence) {
		observability.DefaultMetrics.ExecutionCycles.WithLabelValues("health_veto").Inc()
		e.log.Info().Float64("multiplier", multiplier).Msg("market health vetoed trading this tick")
		return nil
	}

	candidates, err := e.launches.GetMonitoring(ctx, e.config.CandidateLimit)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}

	for _, record := range candidates {
		if !e.matches(record, decision.Strategy) {
			observability.DefaultMetrics.CandidatesJudged.WithLabelValues("rejected").Inc()
			continue
		}
		observability.DefaultMetrics.CandidatesJudged.WithLabelValues("accepted").Inc()
		if err := e.execute(ctx, record, decision.Strategy, multiplier); err != nil {
			e.log.Warn().Err(err).Str("launch_id", record.LaunchID).Msg("execution failed")
		}
	}

	observability.DefaultMetrics.ExecutionCycles.WithLabelValues("ok").Inc()
	return nil
}

// matches runs the filter chain, rejecting on the first failed comparison.
func (e *Executor) matches(record *domain.LaunchRecord, s *domain.Strategy) bool {
	reject := func(check string, got, want float64) bool {
		e.log.Debug().
			Str("launch_id", record.LaunchID).
			Str("check", check).
			Float64("got", got).
			Float64("want", want).
			Msg("candidate rejected")
		return false
	}

	if record.InitialCap < s.MinMarketCap {
		return reject("min_market_cap", record.InitialCap, s.MinMarketCap)
	}
	if !s.MaxMarketCap.AllowsMax(record.InitialCap) {
		max, _ := s.MaxMarketCap.Value()
		return reject("max_market_cap", record.InitialCap, max)
	}
	if record.InitialVolume < s.MinVolume {
		return reject("min_volume", record.InitialVolume, s.MinVolume)
	}
	if min, required := s.MinMomentum.Value(); required {
		momentum, ok := e.momentum.InitialMomentum(record.LaunchID)
		if !ok {
			return reject("momentum_series", 0, min)
		}
		if momentum < min {
			return reject("min_momentum", momentum, min)
		}
	}
	return true
}

// execute sizes and writes one buy trade per qualifying portfolio, then
// marks the record traded only if at least one trade succeeded.
func (e *Executor) execute(ctx context.Context, record *domain.LaunchRecord, s *domain.Strategy, multiplier float64) error {
	if record.LaunchPrice <= 0 {
		// Never trade, never touch the record's status
		e.log.Warn().Str("launch_id", record.LaunchID).Float64("price", record.LaunchPrice).Msg("non-positive launch price, skipping candidate")
		return nil
	}

	portfolios, err := e.portfolios.ListLaunchTraders(ctx)
	if err != nil {
		return fmt.Errorf("list portfolios: %w", err)
	}
	if len(portfolios) == 0 {
		// Expected nothing-to-do state
		return nil
	}

	executed := 0
	for _, p := range portfolios {
		if err := e.enterPosition(ctx, record, s, p, multiplier); err != nil {
			e.log.Warn().Err(err).
				Str("launch_id", record.LaunchID).
				Str("portfolio_id", p.PortfolioID).
				Msg("portfolio entry failed")
			continue
		}
		executed++
	}

	if executed == 0 {
		// Left in monitoring so future ticks may retry
		return nil
	}

	err = e.launches.TransitionStatus(ctx, record.LaunchID,
		domain.LaunchStatusMonitoring, domain.LaunchStatusTraded)
	if errors.Is(err, storage.ErrConflict) {
		e.log.Info().Str("launch_id", record.LaunchID).Msg("record finalized before trade transition")
		return nil
	}
	if err != nil {
		return fmt.Errorf("transition to traded: %w", err)
	}

	e.log.Info().
		Str("launch_id", record.LaunchID).
		Int("trades", executed).
		Msg("launch traded")
	return nil
}

func (e *Executor) enterPosition(ctx context.Context, record *domain.LaunchRecord, s *domain.Strategy, p *domain.Portfolio, multiplier float64) error {
	size := positionSize(p, s) * multiplier
	if size < e.config.MinTradeSize {
		e.log.Debug().
			Str("portfolio_id", p.PortfolioID).
			Float64("size", size).
			Float64("floor", e.config.MinTradeSize).
			Msg("position below floor, skipping portfolio")
		return nil
	}

	// Debit first so the overdraw guard runs before the trade exists
	if err := e.portfolios.AdjustCash(ctx, p.PortfolioID, -size); err != nil {
		return fmt.Errorf("debit cash: %w", err)
	}

	executedAt := e.clock().UnixMilli()
	launchID := record.LaunchID
	trade := &domain.Trade{
		TradeID:     idhash.ComputeTradeID(p.PortfolioID, launchID, record.TokenID, executedAt),
		PortfolioID: p.PortfolioID,
		TokenID:     record.TokenID,
		LaunchID:    &launchID,
		Side:        domain.TradeSideBuy,
		Quantity:    size / record.LaunchPrice,
		Price:       record.LaunchPrice,
		TotalValue:  size,
		ExecutedAt:  executedAt,
	}

	if err := e.trades.Insert(ctx, trade); err != nil {
		if refundErr := e.portfolios.AdjustCash(ctx, p.PortfolioID, size); refundErr != nil {
			e.log.Error().Err(refundErr).Str("portfolio_id", p.PortfolioID).Msg("refund after failed trade write")
		}
		return fmt.Errorf("write trade: %w", err)
	}

	observability.RecordTrade(size)

	e.log.Info().
		Str("trade_id", trade.TradeID).
		Str("portfolio_id", p.PortfolioID).
		Float64("size_usd", size).
		Float64("quantity", trade.Quantity).
		Msg("launch entry executed")

	if e.notifier != nil {
		e.notifier.Publish(notify.Event{
			Kind:       notify.KindTradeExecuted,
			LaunchID:   launchID,
			TokenID:    record.TokenID,
			PriceUSD:   record.LaunchPrice,
			MarketCap:  record.InitialCap,
			AmountUSD:  size,
			OccurredAt: executedAt,
		})
	}
	return nil
}

// positionSize is min(totalValue x entryPercent, maxPositionSize,
// cash x 0.9).
func positionSize(p *domain.Portfolio, s *domain.Strategy) float64 {
	size := p.TotalValue * s.EntryPercent
	if s.MaxPositionSize > 0 && size > s.MaxPositionSize {
		size = s.MaxPositionSize
	}
	if usable := p.CashBalance * cashUsableFraction; size > usable {
		size = usable
	}
	return size
}
