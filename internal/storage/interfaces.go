package storage

import (
	"context"

	"launchlab/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Upsert inserts or replaces a token keyed by token_id.
	Upsert(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID string) (*domain.Token, error)

	// GetBySymbol retrieves a token by symbol. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Token, error)

	// ListActive retrieves all tokens with the active flag set.
	ListActive(ctx context.Context) ([]*domain.Token, error)
}

// LaunchStore provides access to launch_records storage.
type LaunchStore interface {
	// Insert adds a new launch record. Returns ErrDuplicateKey if launch_id exists.
	Insert(ctx context.Context, l *domain.LaunchRecord) error

	// GetByID retrieves a launch record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, launchID string) (*domain.LaunchRecord, error)

	// GetMonitoringByToken retrieves the launch record in status monitoring for
	// a token, if any. Returns ErrNotFound if none exists.
	GetMonitoringByToken(ctx context.Context, tokenID string) (*domain.LaunchRecord, error)

	// GetMonitoring retrieves all launch records in status monitoring,
	// most recently detected first. limit <= 0 means no limit.
	GetMonitoring(ctx context.Context, limit int) ([]*domain.LaunchRecord, error)

	// TransitionStatus sets the status to `to` only if the current status is
	// `from`. Returns ErrConflict if the current status differs, ErrNotFound
	// if the record does not exist. This is the only way status is mutated.
	TransitionStatus(ctx context.Context, launchID string, from, to domain.LaunchStatus) error

	// SetOutcome records the window-expiry outcome fields. Independent of the
	// status transition so an already-traded record still gets its outcome.
	SetOutcome(ctx context.Context, launchID string, outcomePrice, finalGain float64, evaluatedAt int64) error
}

// LaunchAnalysisStore provides access to launch_analyses storage.
type LaunchAnalysisStore interface {
	// Insert adds a new analysis. Returns ErrDuplicateKey if launch_id exists.
	Insert(ctx context.Context, a *domain.LaunchAnalysis) error

	// GetByLaunchID retrieves the analysis for a launch. Returns ErrNotFound if not exists.
	GetByLaunchID(ctx context.Context, launchID string) (*domain.LaunchAnalysis, error)
}

// StrategyStore provides access to strategies and strategy_performance storage.
type StrategyStore interface {
	// Insert adds a new strategy. Returns ErrDuplicateKey if strategy_id exists.
	Insert(ctx context.Context, s *domain.Strategy) error

	// GetActive retrieves the single active strategy.
	// Returns ErrNotFound if no strategy is active.
	GetActive(ctx context.Context) (*domain.Strategy, error)

	// GetPerformance retrieves the rolling performance for a strategy.
	// Returns ErrNotFound if none has been computed yet.
	GetPerformance(ctx context.Context, strategyID string) (*domain.StrategyPerformance, error)

	// UpsertPerformance inserts or replaces the performance rollup for a strategy.
	UpsertPerformance(ctx context.Context, p *domain.StrategyPerformance) error
}

// PortfolioStore provides access to portfolios storage.
type PortfolioStore interface {
	// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
	Insert(ctx context.Context, p *domain.Portfolio) error

	// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error)

	// ListLaunchTraders retrieves portfolios with both auto-trading and
	// launch-trading enabled.
	ListLaunchTraders(ctx context.Context) ([]*domain.Portfolio, error)

	// AdjustCash applies delta to a portfolio's cash balance.
	// Returns ErrConflict if the resulting balance would be negative.
	AdjustCash(ctx context.Context, portfolioID string, delta float64) error
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByPortfolio retrieves all trades for a portfolio, newest first.
	GetByPortfolio(ctx context.Context, portfolioID string) ([]*domain.Trade, error)

	// GetByLaunch retrieves all trades taken against a launch record.
	GetByLaunch(ctx context.Context, launchID string) ([]*domain.Trade, error)
}

// SnapshotArchive persists monitor snapshot series for later analytics.
type SnapshotArchive interface {
	// InsertBulk appends snapshot points. Duplicate (launch_id, timestamp_ms)
	// pairs are rejected with ErrDuplicateKey.
	InsertBulk(ctx context.Context, points []*domain.LaunchSnapshot) error

	// GetByLaunchID retrieves all points for a launch, ordered by timestamp ASC.
	GetByLaunchID(ctx context.Context, launchID string) ([]*domain.LaunchSnapshot, error)
}
