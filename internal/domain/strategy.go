package domain

// Strategy is a named, versioned set of numeric entry filters.
// At most one strategy is active at a time.
// Corresponds to strategies table in PostgreSQL.
type Strategy struct {
	StrategyID string
	Name       string
	Version    int
	Active     bool

	// Entry filters.
	MinMarketCap float64
	MaxMarketCap Limit // unset means unbounded
	MinVolume    float64
	MinMomentum  Limit // unset means no momentum requirement

	// Position sizing.
	EntryPercent    float64 // fraction of portfolio total value per entry
	MaxPositionSize float64 // hard cap per trade (USD)
}

// StrategyPerformance is the rolling performance for a strategy, recomputed
// by external reporting and read by the strategy gate.
type StrategyPerformance struct {
	StrategyID   string
	TotalTrades  int
	WinRate      float64 // fraction of round trips closed at a profit
	AvgProfit    float64 // fractional average profit per trade (0.5 = +50%)
	ReadyForLive bool
	RecomputedAt int64 // Unix timestamp in milliseconds
}
