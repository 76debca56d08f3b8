// Package gate decides whether the active strategy may drive live execution.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/observability"
	"launchlab/internal/storage"
)

// Thresholds the active strategy's rolling performance must clear.
const (
	// MinWinRate is the required fraction of profitable round trips.
	MinWinRate = 0.65
	// MinAvgProfit is the required fractional average profit per trade.
	MinAvgProfit = 0.50
)

// Decision is the gate's verdict for one evaluation.
type Decision struct {
	Ready    bool
	Strategy *domain.Strategy // nil when no strategy is active
	Reason   string           // human-readable, for logs and dashboards
}

// Gate reads the active strategy and its performance rollup. It never
// writes either.
type Gate struct {
	strategies storage.StrategyStore
	log        zerolog.Logger
}

// New creates a Gate.
func New(strategies storage.StrategyStore, log zerolog.Logger) *Gate {
	return &Gate{
		strategies: strategies,
		log:        log.With().Str("component", "gate").Logger(),
	}
}

// Evaluate checks readiness: win rate, average profit, and the persisted
// ready-for-live flag must all pass. The flag is expected to already encode
// the first two; checking all three guards against stale persisted state.
// A missing strategy or missing performance yields not-ready, not an error.
func (g *Gate) Evaluate(ctx context.Context) (Decision, error) {
	strategy, err := g.strategies.GetActive(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return Decision{Reason: "no active strategy"}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load active strategy: %w", err)
	}

	perf, err := g.strategies.GetPerformance(ctx, strategy.StrategyID)
	if errors.Is(err, storage.ErrNotFound) {
		return Decision{
			Strategy: strategy,
			Reason:   "no performance data for active strategy",
		}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load strategy performance: %w", err)
	}

	d := Decision{Strategy: strategy}
	switch {
	case perf.WinRate < MinWinRate:
		d.Reason = fmt.Sprintf("win rate %.0f%% below %.0f%%", perf.WinRate*100, MinWinRate*100)
	case perf.AvgProfit < MinAvgProfit:
		d.Reason = fmt.Sprintf("avg profit %.0f%% below %.0f%%", perf.AvgProfit*100, MinAvgProfit*100)
	case !perf.ReadyForLive:
		d.Reason = "ready-for-live flag not set"
	default:
		d.Ready = true
		d.Reason = "ready"
	}

	observability.RecordGateEvaluation(d.Ready)

	if !d.Ready {
		g.log.Debug().
			Str("strategy_id", strategy.StrategyID).
			Float64("win_rate", perf.WinRate).
			Float64("avg_profit", perf.AvgProfit).
			Bool("ready_for_live", perf.ReadyForLive).
			Str("reason", d.Reason).
			Msg("strategy not ready")
	}
	return d, nil
}
