package memory

import (
	"context"
	"sort"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// SnapshotArchive is an in-memory implementation of storage.SnapshotArchive.
type SnapshotArchive struct {
	mu   sync.RWMutex
	data map[string][]*domain.LaunchSnapshot // keyed by launch_id
	seen map[snapshotKey]struct{}
}

type snapshotKey struct {
	launchID    string
	timestampMs int64
}

// NewSnapshotArchive creates a new in-memory snapshot archive.
func NewSnapshotArchive() *SnapshotArchive {
	return &SnapshotArchive{
		data: make(map[string][]*domain.LaunchSnapshot),
		seen: make(map[snapshotKey]struct{}),
	}
}

// InsertBulk appends snapshot points. Fails entire batch on any duplicate.
func (s *SnapshotArchive) InsertBulk(_ context.Context, points []*domain.LaunchSnapshot) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check intra-batch and existing duplicates before mutating
	batch := make(map[snapshotKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.LaunchID == "" {
			return storage.ErrInvalidInput
		}
		k := snapshotKey{p.LaunchID, p.TimestampMs}
		if _, dup := batch[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := s.seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[p.LaunchID] = append(s.data[p.LaunchID], &pointCopy)
		s.seen[snapshotKey{p.LaunchID, p.TimestampMs}] = struct{}{}
	}
	return nil
}

// GetByLaunchID retrieves all points for a launch, ordered by timestamp ASC.
func (s *SnapshotArchive) GetByLaunchID(_ context.Context, launchID string) ([]*domain.LaunchSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[launchID]
	result := make([]*domain.LaunchSnapshot, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)
