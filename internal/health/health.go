// Package health derives a coarse market-wide trading posture from feed
// breadth. The score is advisory: it scales position sizes and can veto
// trading outright, but never creates trades on its own.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/marketdata"
	"launchlab/internal/observability"
)

// Posture is the coarse trading recommendation derived from the score.
type Posture string

const (
	PostureTradeNormally   Posture = "trade_normally"
	PostureTradeCautiously Posture = "trade_cautiously"
	PostureMinimizeTrading Posture = "minimize_trading"
	PostureHaltTrading     Posture = "halt_trading"
)

// Signal is the market health collaborator consumed by the executor.
type Signal interface {
	// ShouldTrade reports whether a trade with the given confidence
	// (0..1) is acceptable under current market conditions.
	ShouldTrade(ctx context.Context, confidence float64) bool

	// PositionSizeMultiplier returns the factor applied to computed
	// position sizes. Zero means trading is halted.
	PositionSizeMultiplier(ctx context.Context) float64

	// Posture returns the current coarse recommendation.
	Posture(ctx context.Context) Posture
}

// MonitorOptions configures a market health monitor.
type MonitorOptions struct {
	Gateway marketdata.Gateway
	Logger  zerolog.Logger

	// CacheTTL bounds how often the score is recomputed from the feed.
	// Defaults to 5 minutes.
	CacheTTL time.Duration

	// ConservativeMultiplier is used when no score is available.
	// Defaults to 0.5.
	ConservativeMultiplier float64

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Monitor computes a 0-100 market health score from feed breadth and caches
// it with a TTL. Missing data degrades to the conservative multiplier, never
// to an error.
type Monitor struct {
	gateway      marketdata.Gateway
	log          zerolog.Logger
	cacheTTL     time.Duration
	conservative float64
	clock        func() time.Time

	mu         sync.Mutex
	score      float64
	haveScore  bool
	fetchedAt  time.Time
	refreshing bool
}

// NewMonitor creates a market health monitor.
func NewMonitor(opts MonitorOptions) *Monitor {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	conservative := opts.ConservativeMultiplier
	if conservative <= 0 {
		conservative = 0.5
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Monitor{
		gateway:      opts.Gateway,
		log:          opts.Logger.With().Str("component", "market_health").Logger(),
		cacheTTL:     ttl,
		conservative: conservative,
		clock:        clock,
	}
}

var _ Signal = (*Monitor)(nil)

// ShouldTrade reports whether a trade with the given confidence is
// acceptable. Stricter postures demand higher confidence; with no score at
// all only high-confidence trades pass.
func (m *Monitor) ShouldTrade(ctx context.Context, confidence float64) bool {
	score, ok := m.currentScore(ctx)
	if !ok {
		return confidence >= 0.8
	}

	switch postureForScore(score) {
	case PostureHaltTrading:
		return false
	case PostureMinimizeTrading:
		return confidence >= 0.8
	case PostureTradeCautiously:
		return confidence >= 0.5
	default:
		return true
	}
}

// PositionSizeMultiplier returns the sizing factor for the current posture.
func (m *Monitor) PositionSizeMultiplier(ctx context.Context) float64 {
	score, ok := m.currentScore(ctx)
	if !ok {
		return m.conservative
	}

	switch postureForScore(score) {
	case PostureTradeNormally:
		return 1.0
	case PostureTradeCautiously:
		return 0.75
	case PostureMinimizeTrading:
		return 0.5
	default:
		return 0
	}
}

// Posture returns the current coarse recommendation. With no score available
// it reports trade_cautiously.
func (m *Monitor) Posture(ctx context.Context) Posture {
	score, ok := m.currentScore(ctx)
	if !ok {
		return PostureTradeCautiously
	}
	return postureForScore(score)
}

// Score returns the cached score and whether one is available. Exposed for
// status queries.
func (m *Monitor) Score(ctx context.Context) (float64, bool) {
	return m.currentScore(ctx)
}

// currentScore serves the cached score, refreshing it from the feed when the
// TTL has lapsed. The lock is not held across the feed call: callers arriving
// during an in-flight refresh get the current (possibly stale or absent)
// score immediately instead of waiting out the feed's retry budget.
func (m *Monitor) currentScore(ctx context.Context) (float64, bool) {
	now := m.clock()

	m.mu.Lock()
	if (m.haveScore && now.Sub(m.fetchedAt) < m.cacheTTL) || m.refreshing {
		score, have := m.score, m.haveScore
		m.mu.Unlock()
		return score, have
	}
	m.refreshing = true
	m.mu.Unlock()

	tokens, err := m.gateway.ListActiveTokens(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false

	if err != nil || len(tokens) == 0 {
		if err != nil {
			m.log.Warn().Err(err).Msg("health refresh failed, keeping last score")
		}
		// Serve a stale score over no score at all
		return m.score, m.haveScore
	}

	m.score = scoreBreadth(tokens)
	m.haveScore = true
	m.fetchedAt = now
	observability.DefaultMetrics.MarketHealthScore.Set(m.score)
	m.log.Debug().Float64("score", m.score).Str("posture", string(postureForScore(m.score))).Msg("health score refreshed")
	return m.score, true
}

// scoreBreadth maps market breadth to a 0-100 score: the advancing fraction
// contributes up to 70 points, capped average 24h change up to 30.
func scoreBreadth(tokens []marketdata.MarketToken) float64 {
	advancing := 0
	sumChange := 0.0
	for _, t := range tokens {
		if t.Change24h > 0 {
			advancing++
		}
		sumChange += t.Change24h
	}

	breadth := float64(advancing) / float64(len(tokens))

	avgChange := sumChange / float64(len(tokens))
	if avgChange > 0.5 {
		avgChange = 0.5
	}
	if avgChange < -0.5 {
		avgChange = -0.5
	}
	// Map [-0.5, 0.5] onto [0, 1]
	changeComponent := (avgChange + 0.5)

	score := breadth*70 + changeComponent*30
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func postureForScore(score float64) Posture {
	switch {
	case score >= 70:
		return PostureTradeNormally
	case score >= 50:
		return PostureTradeCautiously
	case score >= 30:
		return PostureMinimizeTrading
	default:
		return PostureHaltTrading
	}
}
