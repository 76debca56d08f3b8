package domain

// Token represents a tracked market token.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	TokenID    string  // PRIMARY KEY, deterministic hash of external id
	ExternalID string  // feed-side identifier (pair or mint address)
	Symbol     string
	Name       string
	Price      float64 // current price in USD
	MarketCap  float64 // USD
	Volume24h  float64 // USD
	Change24h  float64 // fractional 24h price change (0.15 = +15%)
	Active     bool
	UpdatedAt  int64 // Unix timestamp in milliseconds
}
