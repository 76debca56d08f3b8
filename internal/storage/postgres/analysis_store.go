package postgres

import (
	"context"
	"fmt"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// LaunchAnalysisStore implements storage.LaunchAnalysisStore using PostgreSQL.
type LaunchAnalysisStore struct {
	pool *Pool
}

// NewLaunchAnalysisStore creates a new LaunchAnalysisStore.
func NewLaunchAnalysisStore(pool *Pool) *LaunchAnalysisStore {
	return &LaunchAnalysisStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchAnalysisStore = (*LaunchAnalysisStore)(nil)

// Insert adds a new analysis. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchAnalysisStore) Insert(ctx context.Context, a *domain.LaunchAnalysis) error {
	query := `
		INSERT INTO launch_analyses (
			launch_id, outcome, final_gain, peak_price, peak_gain, time_to_peak_min,
			max_drawdown, initial_momentum, volume_pattern, patterns, success_factors, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		a.LaunchID,
		string(a.Outcome),
		a.FinalGain,
		a.PeakPrice,
		a.PeakGain,
		a.TimeToPeakMin,
		a.MaxDrawdown,
		a.InitialMomentum,
		string(a.VolumePattern),
		a.Patterns,
		a.SuccessFactors,
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch analysis: %w", err)
	}
	return nil
}

// GetByLaunchID retrieves the analysis for a launch. Returns ErrNotFound if not exists.
func (s *LaunchAnalysisStore) GetByLaunchID(ctx context.Context, launchID string) (*domain.LaunchAnalysis, error) {
	query := `
		SELECT launch_id, outcome, final_gain, peak_price, peak_gain, time_to_peak_min,
		       max_drawdown, initial_momentum, volume_pattern, patterns, success_factors, created_at
		FROM launch_analyses
		WHERE launch_id = $1
	`

	var a domain.LaunchAnalysis
	var outcome, volumePattern string
	err := s.pool.QueryRow(ctx, query, launchID).Scan(
		&a.LaunchID,
		&outcome,
		&a.FinalGain,
		&a.PeakPrice,
		&a.PeakGain,
		&a.TimeToPeakMin,
		&a.MaxDrawdown,
		&a.InitialMomentum,
		&volumePattern,
		&a.Patterns,
		&a.SuccessFactors,
		&a.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis by launch id: %w", err)
	}
	a.Outcome = domain.LaunchStatus(outcome)
	a.VolumePattern = domain.VolumePattern(volumePattern)
	return &a, nil
}
