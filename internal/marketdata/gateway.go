// Package marketdata provides paginated, cached, rate-limited access to
// token market data. All fetchers may return an empty result under load;
// callers must treat empty as "no data this cycle", not as an error.
package marketdata

import "context"

// MarketToken is one token row from the feed's active list.
type MarketToken struct {
	ExternalID    string  // feed-side pair identifier
	Symbol        string
	Name          string
	PriceUSD      float64
	MarketCap     float64
	Volume24h     float64
	Change24h     float64 // fractional (0.15 = +15%)
	LiquidityUSD  float64
	PairCreatedAt int64 // Unix ms, 0 when the feed omits it
}

// CandidateCoin is a discovery-list entry (trending / top gainers / low cap).
type CandidateCoin struct {
	ExternalID string
	Symbol     string
	Name       string
	PriceUSD   float64
	MarketCap  float64
	Volume24h  float64
	Change24h  float64
	Source     string // discovery list that produced it
}

// Discovery list identifiers.
const (
	SourceTrending  = "trending"
	SourceTopGainer = "top_gainer"
	SourceLowCap    = "low_cap"
)

// TokenDetail is the full per-token view.
type TokenDetail struct {
	MarketToken
	TxnsBuys24h  int
	TxnsSells24h int
}

// Gateway is the market data collaborator consumed by the pipeline.
type Gateway interface {
	// ListActiveTokens returns the current active-token list.
	ListActiveTokens(ctx context.Context) ([]MarketToken, error)

	// FetchCandidateCoins returns discovery-list candidates.
	FetchCandidateCoins(ctx context.Context) ([]CandidateCoin, error)

	// FetchTokenDetail returns the full view for one token.
	FetchTokenDetail(ctx context.Context, externalID string) (*TokenDetail, error)
}
