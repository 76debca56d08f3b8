package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// LaunchStore implements storage.LaunchStore using PostgreSQL.
type LaunchStore struct {
	pool *Pool
}

// NewLaunchStore creates a new LaunchStore.
func NewLaunchStore(pool *Pool) *LaunchStore {
	return &LaunchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

const launchColumns = `
	launch_id, token_id, launch_price, initial_cap, initial_volume,
	minutes_on_market, status, detected_at, outcome_price, final_gain, evaluated_at
`

// Insert adds a new launch record. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchStore) Insert(ctx context.Context, l *domain.LaunchRecord) error {
	query := `
		INSERT INTO launch_records (
			launch_id, token_id, launch_price, initial_cap, initial_volume,
			minutes_on_market, status, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		l.LaunchID,
		l.TokenID,
		l.LaunchPrice,
		l.InitialCap,
		l.InitialVolume,
		l.MinutesOnMarket,
		string(l.Status),
		l.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch record: %w", err)
	}
	return nil
}

// GetByID retrieves a launch record by its ID. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(ctx context.Context, launchID string) (*domain.LaunchRecord, error) {
	query := `SELECT ` + launchColumns + ` FROM launch_records WHERE launch_id = $1`

	row := s.pool.QueryRow(ctx, query, launchID)
	l, err := scanLaunch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch by id: %w", err)
	}
	return l, nil
}

// GetMonitoringByToken retrieves the monitoring launch record for a token.
func (s *LaunchStore) GetMonitoringByToken(ctx context.Context, tokenID string) (*domain.LaunchRecord, error) {
	query := `
		SELECT ` + launchColumns + `
		FROM launch_records
		WHERE token_id = $1 AND status = $2
		ORDER BY detected_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, tokenID, string(domain.LaunchStatusMonitoring))
	l, err := scanLaunch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get monitoring launch by token: %w", err)
	}
	return l, nil
}

// GetMonitoring retrieves monitoring launch records, most recent first.
func (s *LaunchStore) GetMonitoring(ctx context.Context, limit int) ([]*domain.LaunchRecord, error) {
	query := `
		SELECT ` + launchColumns + `
		FROM launch_records
		WHERE status = $1
		ORDER BY detected_at DESC, launch_id ASC
	`
	args := []any{string(domain.LaunchStatusMonitoring)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get monitoring launches: %w", err)
	}
	defer rows.Close()

	var result []*domain.LaunchRecord
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan launch record: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// TransitionStatus sets status to `to` only if the current status is `from`.
// The WHERE clause is the compare-and-swap: a concurrent writer that already
// moved the record off `from` leaves zero rows affected.
func (s *LaunchStore) TransitionStatus(ctx context.Context, launchID string, from, to domain.LaunchStatus) error {
	query := `
		UPDATE launch_records
		SET status = $1
		WHERE launch_id = $2 AND status = $3
	`

	tag, err := s.pool.Exec(ctx, query, string(to), launchID, string(from))
	if err != nil {
		return fmt.Errorf("transition launch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing record from a lost race
		if _, err := s.GetByID(ctx, launchID); err != nil {
			return err
		}
		return storage.ErrConflict
	}
	return nil
}

// SetOutcome records the window-expiry outcome fields.
func (s *LaunchStore) SetOutcome(ctx context.Context, launchID string, outcomePrice, finalGain float64, evaluatedAt int64) error {
	query := `
		UPDATE launch_records
		SET outcome_price = $1, final_gain = $2, evaluated_at = $3
		WHERE launch_id = $4
	`

	tag, err := s.pool.Exec(ctx, query, outcomePrice, finalGain, evaluatedAt, launchID)
	if err != nil {
		return fmt.Errorf("set launch outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanLaunch(row pgx.Row) (*domain.LaunchRecord, error) {
	var l domain.LaunchRecord
	var status string
	err := row.Scan(
		&l.LaunchID,
		&l.TokenID,
		&l.LaunchPrice,
		&l.InitialCap,
		&l.InitialVolume,
		&l.MinutesOnMarket,
		&status,
		&l.DetectedAt,
		&l.OutcomePrice,
		&l.FinalGain,
		&l.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LaunchStatus(status)
	return &l, nil
}
