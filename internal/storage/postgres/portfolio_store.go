package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

const portfolioColumns = `
	portfolio_id, name, cash_balance, total_value, realized_pnl, unrealized_pnl,
	auto_trading, launch_trading
`

// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(ctx context.Context, p *domain.Portfolio) error {
	query := `
		INSERT INTO portfolios (
			portfolio_id, name, cash_balance, total_value, realized_pnl, unrealized_pnl,
			auto_trading, launch_trading
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PortfolioID,
		p.Name,
		p.CashBalance,
		p.TotalValue,
		p.RealizedPnL,
		p.UnrealizedPnL,
		p.AutoTrading,
		p.LaunchTrading,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE portfolio_id = $1`

	row := s.pool.QueryRow(ctx, query, portfolioID)
	p, err := scanPortfolio(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio by id: %w", err)
	}
	return p, nil
}

// ListLaunchTraders retrieves portfolios with auto-trading and launch-trading enabled.
func (s *PortfolioStore) ListLaunchTraders(ctx context.Context) ([]*domain.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE auto_trading = TRUE AND launch_trading = TRUE
		ORDER BY portfolio_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list launch traders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// AdjustCash applies delta to a portfolio's cash balance.
// The balance guard is part of the UPDATE so concurrent debits cannot overdraw.
func (s *PortfolioStore) AdjustCash(ctx context.Context, portfolioID string, delta float64) error {
	query := `
		UPDATE portfolios
		SET cash_balance = cash_balance + $1
		WHERE portfolio_id = $2 AND cash_balance + $1 >= 0
	`

	tag, err := s.pool.Exec(ctx, query, delta, portfolioID)
	if err != nil {
		return fmt.Errorf("adjust portfolio cash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, portfolioID); err != nil {
			return err
		}
		return storage.ErrConflict
	}
	return nil
}

func scanPortfolio(row pgx.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := row.Scan(
		&p.PortfolioID,
		&p.Name,
		&p.CashBalance,
		&p.TotalValue,
		&p.RealizedPnL,
		&p.UnrealizedPnL,
		&p.AutoTrading,
		&p.LaunchTrading,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
