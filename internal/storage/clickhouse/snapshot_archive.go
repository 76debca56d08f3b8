package clickhouse

import (
	"context"
	"fmt"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// SnapshotArchive implements storage.SnapshotArchive using ClickHouse.
// Monitor snapshot series land here for later strategy research; the
// pipeline itself only ever appends and reads back whole series.
type SnapshotArchive struct {
	conn *Conn
}

// NewSnapshotArchive creates a new SnapshotArchive.
func NewSnapshotArchive(conn *Conn) *SnapshotArchive {
	return &SnapshotArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)

// InsertBulk appends snapshot points. Fails entire batch on any duplicate.
func (s *SnapshotArchive) InsertBulk(ctx context.Context, points []*domain.LaunchSnapshot) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		launchID    string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		k := key{p.LaunchID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.LaunchID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO launch_snapshots (
			launch_id, timestamp_ms, price, market_cap
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(p.LaunchID, uint64(p.TimestampMs), p.Price, p.MarketCap)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByLaunchID retrieves all points for a launch, ordered by timestamp ASC.
func (s *SnapshotArchive) GetByLaunchID(ctx context.Context, launchID string) ([]*domain.LaunchSnapshot, error) {
	query := `
		SELECT launch_id, timestamp_ms, price, market_cap
		FROM launch_snapshots
		WHERE launch_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, launchID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.LaunchSnapshot
	for rows.Next() {
		var p domain.LaunchSnapshot
		var ts uint64
		if err := rows.Scan(&p.LaunchID, &ts, &p.Price, &p.MarketCap); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		p.TimestampMs = int64(ts)
		result = append(result, &p)
	}
	return result, rows.Err()
}

func (s *SnapshotArchive) exists(ctx context.Context, launchID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count() FROM launch_snapshots
		WHERE launch_id = ? AND timestamp_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, launchID, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
