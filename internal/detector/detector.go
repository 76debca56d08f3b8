// Package detector scans the active-token feed for early-launch
// characteristics and registers each qualifying token exactly once.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/idhash"
	"launchlab/internal/marketdata"
	"launchlab/internal/notify"
	"launchlab/internal/observability"
	"launchlab/internal/storage"
)

// Config holds the detection thresholds.
type Config struct {
	// MinMarketCap and MaxMarketCap bound the early-launch cap range (USD).
	MinMarketCap float64
	MaxMarketCap float64
	// MinAbsChange is the minimum absolute fractional 24h price change.
	MinAbsChange float64
	// MinVolume is the minimum 24h volume (USD).
	MinVolume float64
	// FirstSeenTTL bounds the first-seen bookkeeping map.
	FirstSeenTTL time.Duration
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		MinMarketCap: 10_000,
		MaxMarketCap: 50_000_000,
		MinAbsChange: 0.10,
		MinVolume:    500,
		FirstSeenTTL: 6 * time.Hour,
	}
}

// Options configures a Detector.
type Options struct {
	Gateway  marketdata.Gateway
	Tokens   storage.TokenStore
	Launches storage.LaunchStore
	Notifier notify.Publisher
	Config   Config
	Logger   zerolog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Detector finds tokens exhibiting early-launch characteristics. It owns the
// first-seen bookkeeping used to estimate token age; the map is touched only
// from RunOnce, which the runner serializes.
type Detector struct {
	gateway  marketdata.Gateway
	tokens   storage.TokenStore
	launches storage.LaunchStore
	notifier notify.Publisher
	config   Config
	log      zerolog.Logger
	clock    func() time.Time

	firstSeen map[string]time.Time // external id -> first observed
}

// New creates a Detector.
func New(opts Options) *Detector {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Detector{
		gateway:   opts.Gateway,
		tokens:    opts.Tokens,
		launches:  opts.Launches,
		notifier:  opts.Notifier,
		config:    opts.Config,
		log:       opts.Logger.With().Str("component", "detector").Logger(),
		clock:     clock,
		firstSeen: make(map[string]time.Time),
	}
}

// Status describes the detector for operational dashboards.
type Status struct {
	TrackedFirstSeen int     `json:"tracked_first_seen"`
	MinMarketCap     float64 `json:"min_market_cap"`
	MaxMarketCap     float64 `json:"max_market_cap"`
	MinAbsChange     float64 `json:"min_abs_change"`
	MinVolume        float64 `json:"min_volume"`
}

// Status reports the current bookkeeping size and configured thresholds.
func (d *Detector) Status() Status {
	return Status{
		TrackedFirstSeen: len(d.firstSeen),
		MinMarketCap:     d.config.MinMarketCap,
		MaxMarketCap:     d.config.MaxMarketCap,
		MinAbsChange:     d.config.MinAbsChange,
		MinVolume:        d.config.MinVolume,
	}
}

// RunOnce executes one detection cycle: refresh token state, find qualifying
// tokens, and register each one exactly once. Per-token failures are logged
// and skipped; they do not abort the cycle.
func (d *Detector) RunOnce(ctx context.Context) error {
	feed, err := d.gateway.ListActiveTokens(ctx)
	if err != nil {
		observability.RecordDetectionCycle("error", 0, 0)
		return fmt.Errorf("list active tokens: %w", err)
	}
	feed = d.mergeCandidates(ctx, feed)
	if len(feed) == 0 {
		// Empty means no data this cycle, not an error
		d.log.Debug().Msg("empty feed, skipping cycle")
		return nil
	}

	now := d.clock()
	d.recordFirstSeen(feed, now)
	d.purgeFirstSeen(now)

	detected := 0
	for _, mt := range feed {
		if err := d.refreshToken(ctx, mt, now); err != nil {
			d.log.Warn().Err(err).Str("symbol", mt.Symbol).Msg("token refresh failed")
			continue
		}

		if !d.qualifies(mt) {
			continue
		}

		created, err := d.register(ctx, mt, now)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", mt.Symbol).Msg("launch registration failed")
			continue
		}
		if created {
			detected++
		}
	}

	observability.RecordDetectionCycle("ok", len(feed), detected)
	observability.DefaultMetrics.FirstSeenTracked.Set(float64(len(d.firstSeen)))

	d.log.Info().
		Int("feed_tokens", len(feed)).
		Int("detected", detected).
		Msg("detection cycle completed")
	return nil
}

// mergeCandidates widens the scan set with the discovery lists, deduplicated
// by external id. A failed discovery fetch degrades to the plain active list.
func (d *Detector) mergeCandidates(ctx context.Context, feed []marketdata.MarketToken) []marketdata.MarketToken {
	coins, err := d.gateway.FetchCandidateCoins(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("discovery lists unavailable this cycle")
		return feed
	}

	seen := make(map[string]struct{}, len(feed))
	for _, mt := range feed {
		seen[mt.ExternalID] = struct{}{}
	}
	for _, c := range coins {
		if _, dup := seen[c.ExternalID]; dup {
			continue
		}
		seen[c.ExternalID] = struct{}{}
		feed = append(feed, marketdata.MarketToken{
			ExternalID: c.ExternalID,
			Symbol:     c.Symbol,
			Name:       c.Name,
			PriceUSD:   c.PriceUSD,
			MarketCap:  c.MarketCap,
			Volume24h:  c.Volume24h,
			Change24h:  c.Change24h,
		})
	}
	return feed
}

func (d *Detector) recordFirstSeen(feed []marketdata.MarketToken, now time.Time) {
	for _, mt := range feed {
		if _, seen := d.firstSeen[mt.ExternalID]; !seen {
			d.firstSeen[mt.ExternalID] = now
		}
	}
}

func (d *Detector) purgeFirstSeen(now time.Time) {
	for id, seen := range d.firstSeen {
		if now.Sub(seen) > d.config.FirstSeenTTL {
			delete(d.firstSeen, id)
		}
	}
}

func (d *Detector) refreshToken(ctx context.Context, mt marketdata.MarketToken, now time.Time) error {
	return d.tokens.Upsert(ctx, &domain.Token{
		TokenID:    idhash.ComputeTokenID(mt.ExternalID, mt.Symbol),
		ExternalID: mt.ExternalID,
		Symbol:     mt.Symbol,
		Name:       mt.Name,
		Price:      mt.PriceUSD,
		MarketCap:  mt.MarketCap,
		Volume24h:  mt.Volume24h,
		Change24h:  mt.Change24h,
		Active:     true,
		UpdatedAt:  now.UnixMilli(),
	})
}

func (d *Detector) qualifies(mt marketdata.MarketToken) bool {
	if mt.MarketCap < d.config.MinMarketCap || mt.MarketCap > d.config.MaxMarketCap {
		return false
	}
	change := mt.Change24h
	if change < 0 {
		change = -change
	}
	if change < d.config.MinAbsChange {
		return false
	}
	return mt.Volume24h >= d.config.MinVolume
}

// register creates the launch record for a qualifying token unless one in
// status monitoring already exists. Returns whether a record was created.
func (d *Detector) register(ctx context.Context, mt marketdata.MarketToken, now time.Time) (bool, error) {
	tokenID := idhash.ComputeTokenID(mt.ExternalID, mt.Symbol)

	_, err := d.launches.GetMonitoringByToken(ctx, tokenID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("check existing record: %w", err)
	}

	detectedAt := now.UnixMilli()
	record := &domain.LaunchRecord{
		LaunchID:        idhash.ComputeLaunchID(tokenID, detectedAt),
		TokenID:         tokenID,
		LaunchPrice:     mt.PriceUSD,
		InitialCap:      mt.MarketCap,
		InitialVolume:   mt.Volume24h,
		MinutesOnMarket: d.minutesOnMarket(ctx, mt, now),
		Status:          domain.LaunchStatusMonitoring,
		DetectedAt:      detectedAt,
	}

	if err := d.launches.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return false, nil
		}
		return false, fmt.Errorf("insert launch record: %w", err)
	}

	d.log.Info().
		Str("launch_id", record.LaunchID).
		Str("symbol", mt.Symbol).
		Float64("price_usd", mt.PriceUSD).
		Float64("market_cap", mt.MarketCap).
		Float64("change_24h", mt.Change24h).
		Msg("launch detected")

	if d.notifier != nil {
		d.notifier.Publish(notify.Event{
			Kind:       notify.KindLaunchDetected,
			LaunchID:   record.LaunchID,
			TokenID:    tokenID,
			Symbol:     mt.Symbol,
			PriceUSD:   mt.PriceUSD,
			MarketCap:  mt.MarketCap,
			OccurredAt: detectedAt,
		})
	}
	return true, nil
}

// minutesOnMarket estimates token age at detection. The feed's pair-created
// timestamp wins when present, with the detail endpoint as a best-effort
// second look; otherwise the first-seen time stands in.
func (d *Detector) minutesOnMarket(ctx context.Context, mt marketdata.MarketToken, now time.Time) float64 {
	createdAt := mt.PairCreatedAt
	if createdAt == 0 {
		if detail, err := d.gateway.FetchTokenDetail(ctx, mt.ExternalID); err == nil && detail != nil {
			createdAt = detail.PairCreatedAt
		}
	}
	if createdAt > 0 {
		age := now.Sub(time.UnixMilli(createdAt))
		if age > 0 {
			return age.Minutes()
		}
		return 0
	}

	seen, ok := d.firstSeen[mt.ExternalID]
	if !ok {
		return 0
	}
	return now.Sub(seen).Minutes()
}
