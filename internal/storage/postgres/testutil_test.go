package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"launchlab/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the schema. Duplicated from internal/storage/migrations
// to avoid an import cycle (migrations imports this package).
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	for _, stmt := range schemaStatements {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply schema")
	}
}

// seedToken inserts a token row so launch/trade foreign keys resolve.
func seedToken(t *testing.T, ctx context.Context, pool *Pool, tokenID, symbol string) {
	t.Helper()

	store := NewTokenStore(pool)
	err := store.Upsert(ctx, &domain.Token{
		TokenID:    tokenID,
		ExternalID: "ext-" + tokenID,
		Symbol:     symbol,
		Name:       symbol,
		Price:      0.01,
		MarketCap:  200_000,
		Volume24h:  1_000,
		Change24h:  0.15,
		Active:     true,
		UpdatedAt:  time.Now().UnixMilli(),
	})
	require.NoError(t, err, "failed to seed token")
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		token_id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		market_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
		volume_24h DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_24h DOUBLE PRECISION NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS launch_records (
		launch_id TEXT PRIMARY KEY,
		token_id TEXT NOT NULL REFERENCES tokens (token_id),
		launch_price DOUBLE PRECISION NOT NULL,
		initial_cap DOUBLE PRECISION NOT NULL,
		initial_volume DOUBLE PRECISION NOT NULL,
		minutes_on_market DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		detected_at BIGINT NOT NULL,
		outcome_price DOUBLE PRECISION,
		final_gain DOUBLE PRECISION,
		evaluated_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS launch_analyses (
		launch_id TEXT PRIMARY KEY REFERENCES launch_records (launch_id),
		outcome TEXT NOT NULL,
		final_gain DOUBLE PRECISION NOT NULL,
		peak_price DOUBLE PRECISION NOT NULL,
		peak_gain DOUBLE PRECISION NOT NULL,
		time_to_peak_min DOUBLE PRECISION NOT NULL,
		max_drawdown DOUBLE PRECISION NOT NULL,
		initial_momentum DOUBLE PRECISION NOT NULL,
		volume_pattern TEXT NOT NULL,
		patterns TEXT[] NOT NULL DEFAULT '{}',
		success_factors TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS strategies (
		strategy_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		min_market_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_market_cap DOUBLE PRECISION,
		min_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_momentum DOUBLE PRECISION,
		entry_percent DOUBLE PRECISION NOT NULL,
		max_position_size DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS strategy_performance (
		strategy_id TEXT PRIMARY KEY REFERENCES strategies (strategy_id),
		total_trades INTEGER NOT NULL DEFAULT 0,
		win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		ready_for_live BOOLEAN NOT NULL DEFAULT FALSE,
		recomputed_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		portfolio_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		cash_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
		unrealized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
		auto_trading BOOLEAN NOT NULL DEFAULT FALSE,
		launch_trading BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL REFERENCES portfolios (portfolio_id),
		token_id TEXT NOT NULL REFERENCES tokens (token_id),
		launch_id TEXT REFERENCES launch_records (launch_id),
		side TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		total_value DOUBLE PRECISION NOT NULL,
		executed_at BIGINT NOT NULL,
		realized_pnl DOUBLE PRECISION,
		closed_at BIGINT
	)`,
}
