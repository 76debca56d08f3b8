package memory

import (
	"context"
	"sort"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// LaunchStore is an in-memory implementation of storage.LaunchStore.
type LaunchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LaunchRecord // keyed by launch_id
}

// NewLaunchStore creates a new in-memory launch store.
func NewLaunchStore() *LaunchStore {
	return &LaunchStore{
		data: make(map[string]*domain.LaunchRecord),
	}
}

// Insert adds a new launch record. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchStore) Insert(_ context.Context, l *domain.LaunchRecord) error {
	if l == nil || l.LaunchID == "" || l.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.LaunchID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *l
	s.data[l.LaunchID] = &recordCopy
	return nil
}

// GetByID retrieves a launch record by its ID. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(_ context.Context, launchID string) (*domain.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[launchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *l
	return &recordCopy, nil
}

// GetMonitoringByToken retrieves the monitoring launch record for a token.
func (s *LaunchStore) GetMonitoringByToken(_ context.Context, tokenID string) (*domain.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.data {
		if l.TokenID == tokenID && l.Status == domain.LaunchStatusMonitoring {
			recordCopy := *l
			return &recordCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetMonitoring retrieves monitoring launch records, most recent first.
func (s *LaunchStore) GetMonitoring(_ context.Context, limit int) ([]*domain.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LaunchRecord
	for _, l := range s.data {
		if l.Status == domain.LaunchStatusMonitoring {
			recordCopy := *l
			result = append(result, &recordCopy)
		}
	}

	// Sort by detected_at DESC, launch_id for ties
	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt > result[j].DetectedAt
		}
		return result[i].LaunchID < result[j].LaunchID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// TransitionStatus sets status to `to` only if the current status is `from`.
func (s *LaunchStore) TransitionStatus(_ context.Context, launchID string, from, to domain.LaunchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.data[launchID]
	if !exists {
		return storage.ErrNotFound
	}
	if l.Status != from {
		return storage.ErrConflict
	}

	l.Status = to
	return nil
}

// SetOutcome records the window-expiry outcome fields.
func (s *LaunchStore) SetOutcome(_ context.Context, launchID string, outcomePrice, finalGain float64, evaluatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.data[launchID]
	if !exists {
		return storage.ErrNotFound
	}

	l.OutcomePrice = &outcomePrice
	l.FinalGain = &finalGain
	l.EvaluatedAt = &evaluatedAt
	return nil
}

// Verify interface compliance at compile time.
var _ storage.LaunchStore = (*LaunchStore)(nil)
