package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces a token keyed by token_id.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (
			token_id, external_id, symbol, name, price, market_cap, volume_24h, change_24h, active, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id) DO UPDATE SET
			price = EXCLUDED.price,
			market_cap = EXCLUDED.market_cap,
			volume_24h = EXCLUDED.volume_24h,
			change_24h = EXCLUDED.change_24h,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		t.TokenID,
		t.ExternalID,
		t.Symbol,
		t.Name,
		t.Price,
		t.MarketCap,
		t.Volume24h,
		t.Change24h,
		t.Active,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, tokenID string) (*domain.Token, error) {
	query := `
		SELECT token_id, external_id, symbol, name, price, market_cap, volume_24h, change_24h, active, updated_at
		FROM tokens
		WHERE token_id = $1
	`

	row := s.pool.QueryRow(ctx, query, tokenID)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetBySymbol retrieves a token by symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Token, error) {
	query := `
		SELECT token_id, external_id, symbol, name, price, market_cap, volume_24h, change_24h, active, updated_at
		FROM tokens
		WHERE symbol = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, symbol)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by symbol: %w", err)
	}
	return t, nil
}

// ListActive retrieves all tokens with the active flag set.
func (s *TokenStore) ListActive(ctx context.Context) ([]*domain.Token, error) {
	query := `
		SELECT token_id, external_id, symbol, name, price, market_cap, volume_24h, change_24h, active, updated_at
		FROM tokens
		WHERE active = TRUE
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.TokenID,
		&t.ExternalID,
		&t.Symbol,
		&t.Name,
		&t.Price,
		&t.MarketCap,
		&t.Volume24h,
		&t.Change24h,
		&t.Active,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
