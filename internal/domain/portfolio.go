package domain

// Portfolio holds simulated capital. Auto-trading and launch-trading are
// independent opt-ins: a portfolio may accept generic auto-trades but not
// launch trades, or vice versa.
type Portfolio struct {
	PortfolioID   string
	Name          string
	CashBalance   float64
	TotalValue    float64
	RealizedPnL   float64
	UnrealizedPnL float64

	AutoTrading   bool
	LaunchTrading bool
}

// TradeSide is the direction of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an immutable record of an executed paper trade.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	TradeID     string // PRIMARY KEY, deterministic hash
	PortfolioID string
	TokenID     string
	LaunchID    *string // set for launch-entry trades

	Side       TradeSide
	Quantity   float64
	Price      float64
	TotalValue float64
	ExecutedAt int64 // Unix timestamp in milliseconds

	// Round-trip fields, set when the position is closed.
	RealizedPnL *float64
	ClosedAt    *int64
}
