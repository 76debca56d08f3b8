package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"launchlab/internal/observability"
)

// ClientConfig configures the DexScreener feed client.
type ClientConfig struct {
	BaseURL string
	// MinRequestSpacing is the global minimum gap between live requests.
	MinRequestSpacing time.Duration
	// CacheTTL is how long responses are served from cache.
	CacheTTL time.Duration
	// MaxRetries bounds 429/5xx retries per request.
	MaxRetries int
	// BackoffBase is the initial retry delay, doubled per attempt.
	BackoffBase time.Duration
	// RequestTimeout is the per-request HTTP timeout.
	RequestTimeout time.Duration
	// SearchQuery selects the active-token universe.
	SearchQuery string
}

// DefaultClientConfig returns conservative free-tier defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           "https://api.dexscreener.com",
		MinRequestSpacing: 5 * time.Second,
		CacheTTL:          3 * time.Minute,
		MaxRetries:        3,
		BackoffBase:       time.Second,
		RequestTimeout:    15 * time.Second,
		SearchQuery:       "SOL",
	}
}

// Client implements Gateway against a DexScreener-style HTTP API.
// Requests share one token-bucket limiter and one circuit breaker; responses
// are cached with a TTL so all four pipeline tasks fit the provider budget.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   Cache
	log     zerolog.Logger
}

// NewClient creates a feed client. cache must not be nil; pass NewMemoryCache()
// when no Redis is configured.
func NewClient(config ClientConfig, cache Cache, log zerolog.Logger) *Client {
	spacing := config.MinRequestSpacing
	if spacing <= 0 {
		spacing = DefaultClientConfig().MinRequestSpacing
	}

	settings := gobreaker.Settings{Name: "marketdata-feed"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(spacing), 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
		cache:   cache,
		log:     log.With().Str("component", "marketdata").Logger(),
	}
}

// Compile-time interface check.
var _ Gateway = (*Client)(nil)

// ListActiveTokens returns the current active-token list.
func (c *Client) ListActiveTokens(ctx context.Context) ([]MarketToken, error) {
	pairs, err := c.searchPairs(ctx, c.config.SearchQuery)
	if err != nil {
		return nil, err
	}

	tokens := make([]MarketToken, 0, len(pairs))
	for _, p := range pairs {
		tokens = append(tokens, p.toMarketToken())
	}
	return tokens, nil
}

// FetchCandidateCoins returns discovery-list candidates from the trending,
// top-gainer, and low-cap searches, deduplicated by pair address.
func (c *Client) FetchCandidateCoins(ctx context.Context) ([]CandidateCoin, error) {
	queries := []struct {
		q      string
		source string
	}{
		{"trending", SourceTrending},
		{"gainers", SourceTopGainer},
		{"new", SourceLowCap},
	}

	seen := make(map[string]struct{})
	var coins []CandidateCoin
	for _, query := range queries {
		pairs, err := c.searchPairs(ctx, query.q)
		if err != nil {
			// One failed list degrades that list, not the whole call
			c.log.Warn().Err(err).Str("list", query.source).Msg("discovery list unavailable")
			continue
		}
		for _, p := range pairs {
			if _, dup := seen[p.PairAddress]; dup {
				continue
			}
			seen[p.PairAddress] = struct{}{}
			t := p.toMarketToken()
			coins = append(coins, CandidateCoin{
				ExternalID: t.ExternalID,
				Symbol:     t.Symbol,
				Name:       t.Name,
				PriceUSD:   t.PriceUSD,
				MarketCap:  t.MarketCap,
				Volume24h:  t.Volume24h,
				Change24h:  t.Change24h,
				Source:     query.source,
			})
		}
	}
	return coins, nil
}

// FetchTokenDetail returns the full view for one token.
func (c *Client) FetchTokenDetail(ctx context.Context, externalID string) (*TokenDetail, error) {
	body, err := c.get(ctx, "/latest/dex/pairs/solana/"+url.PathEscape(externalID))
	if err != nil {
		return nil, err
	}

	var resp pairsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode pair response: %w", err)
	}
	if len(resp.Pairs) == 0 {
		return nil, nil
	}

	p := resp.Pairs[0]
	return &TokenDetail{
		MarketToken:  p.toMarketToken(),
		TxnsBuys24h:  p.Txns.H24.Buys,
		TxnsSells24h: p.Txns.H24.Sells,
	}, nil
}

func (c *Client) searchPairs(ctx context.Context, query string) ([]pair, error) {
	body, err := c.get(ctx, "/latest/dex/search?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var resp pairsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Pairs, nil
}

// get fetches path through the cache, limiter, breaker, and retry budget.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if cached, hit := c.cache.Get(ctx, path); hit {
		observability.DefaultMetrics.FeedCacheHits.Inc()
		return cached, nil
	}
	observability.DefaultMetrics.FeedCacheMisses.Inc()

	body, err := c.breaker.Execute(func() (any, error) {
		return c.fetchWithRetry(ctx, path)
	})
	if err != nil {
		return nil, err
	}

	data := body.([]byte)
	c.cache.Set(ctx, path, data, c.config.CacheTTL)
	return data, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, path string) ([]byte, error) {
	backoff := c.config.BackoffBase
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.fetchOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("feed request retrying")
	}
	return nil, fmt.Errorf("feed request failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, path string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.DefaultMetrics.FeedLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.DefaultMetrics.FeedRequests.WithLabelValues("transport_error").Inc()
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		observability.DefaultMetrics.FeedRequests.WithLabelValues("rate_limited").Inc()
		return nil, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		observability.DefaultMetrics.FeedRequests.WithLabelValues("server_error").Inc()
		return nil, true, fmt.Errorf("server error (%d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		observability.DefaultMetrics.FeedRequests.WithLabelValues("bad_status").Inc()
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	observability.DefaultMetrics.FeedRequests.WithLabelValues("ok").Inc()
	return data, false, nil
}

// DexScreener wire types.

type pairsResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID       string     `json:"chainId"`
	PairAddress   string     `json:"pairAddress"`
	BaseToken     pairToken  `json:"baseToken"`
	PriceUSD      string     `json:"priceUsd"`
	Txns          pairTxns   `json:"txns"`
	Volume        pairWindow `json:"volume"`
	PriceChange   pairWindow `json:"priceChange"`
	Liquidity     liquidity  `json:"liquidity"`
	MarketCap     float64    `json:"marketCap"`
	FDV           float64    `json:"fdv"`
	PairCreatedAt int64      `json:"pairCreatedAt"`
}

type pairToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

type pairTxns struct {
	H24 buysSells `json:"h24"`
}

type buysSells struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type pairWindow struct {
	H24 float64 `json:"h24"`
}

type liquidity struct {
	USD float64 `json:"usd"`
}

func (p pair) toMarketToken() MarketToken {
	price, _ := strconv.ParseFloat(p.PriceUSD, 64)

	marketCap := p.MarketCap
	if marketCap == 0 {
		marketCap = p.FDV
	}

	return MarketToken{
		ExternalID:    p.PairAddress,
		Symbol:        p.BaseToken.Symbol,
		Name:          p.BaseToken.Name,
		PriceUSD:      price,
		MarketCap:     marketCap,
		Volume24h:     p.Volume.H24,
		Change24h:     p.PriceChange.H24 / 100, // feed reports percent
		LiquidityUSD:  p.Liquidity.USD,
		PairCreatedAt: p.PairCreatedAt,
	}
}
