package postgres

import (
	"context"
	"fmt"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Insert adds a new strategy. Returns ErrDuplicateKey if strategy_id exists.
func (s *StrategyStore) Insert(ctx context.Context, st *domain.Strategy) error {
	query := `
		INSERT INTO strategies (
			strategy_id, name, version, active, min_market_cap, max_market_cap,
			min_volume, min_momentum, entry_percent, max_position_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		st.StrategyID,
		st.Name,
		st.Version,
		st.Active,
		st.MinMarketCap,
		st.MaxMarketCap.Ptr(),
		st.MinVolume,
		st.MinMomentum.Ptr(),
		st.EntryPercent,
		st.MaxPositionSize,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

// GetActive retrieves the single active strategy.
func (s *StrategyStore) GetActive(ctx context.Context) (*domain.Strategy, error) {
	query := `
		SELECT strategy_id, name, version, active, min_market_cap, max_market_cap,
		       min_volume, min_momentum, entry_percent, max_position_size
		FROM strategies
		WHERE active = TRUE
		ORDER BY version DESC
		LIMIT 1
	`

	var st domain.Strategy
	var maxCap, minMomentum *float64
	err := s.pool.QueryRow(ctx, query).Scan(
		&st.StrategyID,
		&st.Name,
		&st.Version,
		&st.Active,
		&st.MinMarketCap,
		&maxCap,
		&st.MinVolume,
		&minMomentum,
		&st.EntryPercent,
		&st.MaxPositionSize,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active strategy: %w", err)
	}
	st.MaxMarketCap = domain.LimitFromPtr(maxCap)
	st.MinMomentum = domain.LimitFromPtr(minMomentum)
	return &st, nil
}

// GetPerformance retrieves the rolling performance for a strategy.
func (s *StrategyStore) GetPerformance(ctx context.Context, strategyID string) (*domain.StrategyPerformance, error) {
	query := `
		SELECT strategy_id, total_trades, win_rate, avg_profit, ready_for_live, recomputed_at
		FROM strategy_performance
		WHERE strategy_id = $1
	`

	var p domain.StrategyPerformance
	err := s.pool.QueryRow(ctx, query, strategyID).Scan(
		&p.StrategyID,
		&p.TotalTrades,
		&p.WinRate,
		&p.AvgProfit,
		&p.ReadyForLive,
		&p.RecomputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy performance: %w", err)
	}
	return &p, nil
}

// UpsertPerformance inserts or replaces the performance rollup for a strategy.
func (s *StrategyStore) UpsertPerformance(ctx context.Context, p *domain.StrategyPerformance) error {
	query := `
		INSERT INTO strategy_performance (
			strategy_id, total_trades, win_rate, avg_profit, ready_for_live, recomputed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (strategy_id) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			win_rate = EXCLUDED.win_rate,
			avg_profit = EXCLUDED.avg_profit,
			ready_for_live = EXCLUDED.ready_for_live,
			recomputed_at = EXCLUDED.recomputed_at
	`

	_, err := s.pool.Exec(ctx, query,
		p.StrategyID,
		p.TotalTrades,
		p.WinRate,
		p.AvgProfit,
		p.ReadyForLive,
		p.RecomputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert strategy performance: %w", err)
	}
	return nil
}
