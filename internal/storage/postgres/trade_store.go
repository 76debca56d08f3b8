package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, portfolio_id, token_id, launch_id, side, quantity, price,
	total_value, executed_at, realized_pnl, closed_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (
			trade_id, portfolio_id, token_id, launch_id, side, quantity, price,
			total_value, executed_at, realized_pnl, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID,
		t.PortfolioID,
		t.TokenID,
		t.LaunchID,
		string(t.Side),
		t.Quantity,
		t.Price,
		t.TotalValue,
		t.ExecutedAt,
		t.RealizedPnL,
		t.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByPortfolio retrieves all trades for a portfolio, newest first.
func (s *TradeStore) GetByPortfolio(ctx context.Context, portfolioID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE portfolio_id = $1
		ORDER BY executed_at DESC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("get trades by portfolio: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByLaunch retrieves all trades taken against a launch record.
func (s *TradeStore) GetByLaunch(ctx context.Context, launchID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE launch_id = $1
		ORDER BY executed_at DESC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, launchID)
	if err != nil {
		return nil, fmt.Errorf("get trades by launch: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var side string
	err := row.Scan(
		&t.TradeID,
		&t.PortfolioID,
		&t.TokenID,
		&t.LaunchID,
		&side,
		&t.Quantity,
		&t.Price,
		&t.TotalValue,
		&t.ExecutedAt,
		&t.RealizedPnL,
		&t.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Side = domain.TradeSide(side)
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
