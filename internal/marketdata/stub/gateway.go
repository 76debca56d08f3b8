// Package stub provides a fixture-backed Gateway for tests and the demo
// pipeline.
package stub

import (
	"context"
	"sync"

	"launchlab/internal/marketdata"
)

// Gateway serves canned market data and allows tests to mutate it between
// cycles.
type Gateway struct {
	mu         sync.RWMutex
	tokens     []marketdata.MarketToken
	candidates []marketdata.CandidateCoin
	err        error
}

// NewGateway creates an empty stub gateway.
func NewGateway() *Gateway {
	return &Gateway{}
}

// SetTokens replaces the active-token list.
func (g *Gateway) SetTokens(tokens []marketdata.MarketToken) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append([]marketdata.MarketToken(nil), tokens...)
}

// SetPrice updates one token's price and market cap in place.
func (g *Gateway) SetPrice(externalID string, price, marketCap float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tokens {
		if g.tokens[i].ExternalID == externalID {
			g.tokens[i].PriceUSD = price
			g.tokens[i].MarketCap = marketCap
		}
	}
}

// SetCandidates replaces the discovery list.
func (g *Gateway) SetCandidates(coins []marketdata.CandidateCoin) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.candidates = append([]marketdata.CandidateCoin(nil), coins...)
}

// SetError makes every fetch fail with err until cleared.
func (g *Gateway) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// ListActiveTokens returns the canned active-token list.
func (g *Gateway) ListActiveTokens(_ context.Context) ([]marketdata.MarketToken, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, g.err
	}
	return append([]marketdata.MarketToken(nil), g.tokens...), nil
}

// FetchCandidateCoins returns the canned discovery list.
func (g *Gateway) FetchCandidateCoins(_ context.Context) ([]marketdata.CandidateCoin, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, g.err
	}
	return append([]marketdata.CandidateCoin(nil), g.candidates...), nil
}

// FetchTokenDetail returns the detail view for one token.
func (g *Gateway) FetchTokenDetail(_ context.Context, externalID string) (*marketdata.TokenDetail, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, g.err
	}
	for _, t := range g.tokens {
		if t.ExternalID == externalID {
			return &marketdata.TokenDetail{MarketToken: t}, nil
		}
	}
	return nil, nil
}

// Compile-time interface check.
var _ marketdata.Gateway = (*Gateway)(nil)
