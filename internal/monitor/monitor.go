// Package monitor observes launch records over a fixed window, snapshots
// their price trajectory, and classifies the outcome when the window ends.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/domain"
	"launchlab/internal/notify"
	"launchlab/internal/observability"
	"launchlab/internal/storage"
)

// Config holds the observation parameters.
type Config struct {
	// Window is the observation duration per launch.
	Window time.Duration
}

// DefaultConfig returns the standard observation parameters.
func DefaultConfig() Config {
	return Config{Window: time.Hour}
}

// Options configures a Monitor.
type Options struct {
	Tokens   storage.TokenStore
	Launches storage.LaunchStore
	Analyses storage.LaunchAnalysisStore
	// Archive receives the snapshot series for analytics. Optional;
	// writes are best-effort and never block classification.
	Archive storage.SnapshotArchive
	Config  Config
	Logger  zerolog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Monitor tracks in-flight launches. The tracking map is bounded by the
// currently monitored set: entries are evicted on finalization, never
// accumulated.
type Monitor struct {
	tokens   storage.TokenStore
	launches storage.LaunchStore
	analyses storage.LaunchAnalysisStore
	archive  storage.SnapshotArchive
	config   Config
	log      zerolog.Logger
	clock    func() time.Time

	mu      sync.RWMutex
	tracked map[string]*trackedLaunch
}

type trackedLaunch struct {
	tokenID     string
	launchPrice float64
	initialCap  float64
	detectedAt  int64

	snapshots []domain.LaunchSnapshot
	archived  int // snapshots already written to the archive
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	config := opts.Config
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}

	return &Monitor{
		tokens:   opts.Tokens,
		launches: opts.Launches,
		analyses: opts.Analyses,
		archive:  opts.Archive,
		config:   config,
		log:      opts.Logger.With().Str("component", "monitor").Logger(),
		clock:    clock,
		tracked:  make(map[string]*trackedLaunch),
	}
}

// Track starts observing a launch record, seeding the series with the
// detection-time snapshot. Tracking an already-tracked launch is a no-op.
func (m *Monitor) Track(record *domain.LaunchRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tracked[record.LaunchID]; exists {
		return
	}

	m.tracked[record.LaunchID] = &trackedLaunch{
		tokenID:     record.TokenID,
		launchPrice: record.LaunchPrice,
		initialCap:  record.InitialCap,
		detectedAt:  record.DetectedAt,
		snapshots: []domain.LaunchSnapshot{{
			LaunchID:    record.LaunchID,
			TimestampMs: record.DetectedAt,
			Price:       record.LaunchPrice,
			MarketCap:   record.InitialCap,
		}},
	}
}

// HandleDetected consumes launch-detected events from the bus and starts
// tracking the referenced record.
func (m *Monitor) HandleDetected(ctx context.Context, event notify.Event) {
	if event.Kind != notify.KindLaunchDetected {
		return
	}

	record, err := m.launches.GetByID(ctx, event.LaunchID)
	if err != nil {
		m.log.Warn().Err(err).Str("launch_id", event.LaunchID).Msg("detected launch not loadable")
		return
	}
	m.Track(record)
}

// Rehydrate reloads the tracking set from persisted monitoring records.
// Snapshots taken before the restart are lost; the series restarts from the
// detection-time snapshot.
func (m *Monitor) Rehydrate(ctx context.Context) error {
	records, err := m.launches.GetMonitoring(ctx, 0)
	if err != nil {
		return fmt.Errorf("load monitoring records: %w", err)
	}

	for _, r := range records {
		m.Track(r)
	}
	m.log.Info().Int("rehydrated", len(records)).Msg("tracking set rehydrated")
	return nil
}

// Status describes the monitor for operational dashboards.
type Status struct {
	TrackedLaunches int     `json:"tracked_launches"`
	WindowMinutes   float64 `json:"window_minutes"`
}

// Status reports the tracking-set size and configured window.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		TrackedLaunches: len(m.tracked),
		WindowMinutes:   m.config.Window.Minutes(),
	}
}

// InitialMomentum returns the live first-quarter momentum for a tracked
// launch. Reports false when the launch is untracked or its series is too
// short to have a distinct first quarter.
func (m *Monitor) InitialMomentum(launchID string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.tracked[launchID]
	if !exists {
		return 0, false
	}
	return initialMomentum(t.snapshots)
}

// RunOnce executes one observation tick: reconcile the tracking set against
// the store, snapshot every tracked launch, and finalize those whose window
// has expired. A failing record is logged and retried next tick; it never
// aborts the remaining records.
func (m *Monitor) RunOnce(ctx context.Context) error {
	now := m.clock().UnixMilli()

	if err := m.resync(ctx); err != nil {
		m.log.Warn().Err(err).Msg("tracking resync failed, observing known set")
	}

	for _, launchID := range m.trackedIDs() {
		if err := m.observe(ctx, launchID, now); err != nil {
			m.log.Warn().Err(err).Str("launch_id", launchID).Msg("observation failed, retrying next tick")
		}
	}

	observability.DefaultMetrics.TrackedLaunches.Set(float64(m.Status().TrackedLaunches))
	return nil
}

// resync picks up monitoring records absent from the tracking set, such as
// a launch whose detection event was dropped by a full bus. Track is a no-op
// for records already tracked.
func (m *Monitor) resync(ctx context.Context) error {
	records, err := m.launches.GetMonitoring(ctx, 0)
	if err != nil {
		return fmt.Errorf("load monitoring records: %w", err)
	}
	for _, r := range records {
		m.Track(r)
	}
	return nil
}

func (m *Monitor) trackedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.tracked))
	for id := range m.tracked {
		ids = append(ids, id)
	}
	return ids
}

func (m *Monitor) observe(ctx context.Context, launchID string, now int64) error {
	m.mu.RLock()
	t, exists := m.tracked[launchID]
	m.mu.RUnlock()
	if !exists {
		return nil
	}

	token, err := m.tokens.GetByID(ctx, t.tokenID)
	if err != nil {
		return fmt.Errorf("read token state: %w", err)
	}

	m.mu.Lock()
	t.snapshots = append(t.snapshots, domain.LaunchSnapshot{
		LaunchID:    launchID,
		TimestampMs: now,
		Price:       token.Price,
		MarketCap:   token.MarketCap,
	})
	series := append([]domain.LaunchSnapshot(nil), t.snapshots...)
	m.mu.Unlock()

	observability.DefaultMetrics.SnapshotsTaken.Inc()

	m.archiveNew(ctx, t, series)

	if now-t.detectedAt < m.config.Window.Milliseconds() {
		return nil
	}
	return m.finalize(ctx, launchID, t, series, now)
}

// archiveNew ships not-yet-archived points to the snapshot archive.
// Best-effort: failures are logged and the points retried next tick.
func (m *Monitor) archiveNew(ctx context.Context, t *trackedLaunch, series []domain.LaunchSnapshot) {
	if m.archive == nil || t.archived >= len(series) {
		return
	}

	pending := make([]*domain.LaunchSnapshot, 0, len(series)-t.archived)
	for i := t.archived; i < len(series); i++ {
		s := series[i]
		pending = append(pending, &s)
	}

	err := m.archive.InsertBulk(ctx, pending)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		m.log.Warn().Err(err).Msg("snapshot archive write failed")
		return
	}

	m.mu.Lock()
	t.archived = len(series)
	m.mu.Unlock()
}

// finalize classifies an expired launch and evicts it from the tracking
// set. The analysis write is idempotent; the status transition yields to a
// concurrent trade, which keeps the record traded while still carrying the
// outcome fields.
func (m *Monitor) finalize(ctx context.Context, launchID string, t *trackedLaunch, series []domain.LaunchSnapshot, now int64) error {
	a := analyze(launchID, t.launchPrice, t.initialCap, t.detectedAt, now, series)

	if _, err := m.analyses.GetByLaunchID(ctx, launchID); errors.Is(err, storage.ErrNotFound) {
		if err := m.analyses.Insert(ctx, a); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("write analysis: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("check existing analysis: %w", err)
	}

	last := series[len(series)-1]
	if err := m.launches.SetOutcome(ctx, launchID, last.Price, a.FinalGain, now); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	err := m.launches.TransitionStatus(ctx, launchID, domain.LaunchStatusMonitoring, a.Outcome)
	switch {
	case errors.Is(err, storage.ErrConflict):
		// Already traded; the analysis still stands
		m.log.Info().Str("launch_id", launchID).Str("outcome", string(a.Outcome)).Msg("record traded before window end, keeping status")
	case err != nil:
		return fmt.Errorf("transition status: %w", err)
	}

	m.mu.Lock()
	delete(m.tracked, launchID)
	m.mu.Unlock()

	observability.RecordClassification(string(a.Outcome), a.FinalGain)

	m.log.Info().
		Str("launch_id", launchID).
		Str("outcome", string(a.Outcome)).
		Float64("final_gain", a.FinalGain).
		Float64("peak_gain", a.PeakGain).
		Str("volume_pattern", string(a.VolumePattern)).
		Msg("launch window classified")
	return nil
}
