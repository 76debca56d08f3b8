package memory

import (
	"context"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// LaunchAnalysisStore is an in-memory implementation of storage.LaunchAnalysisStore.
type LaunchAnalysisStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LaunchAnalysis // keyed by launch_id
}

// NewLaunchAnalysisStore creates a new in-memory analysis store.
func NewLaunchAnalysisStore() *LaunchAnalysisStore {
	return &LaunchAnalysisStore{
		data: make(map[string]*domain.LaunchAnalysis),
	}
}

// Insert adds a new analysis. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchAnalysisStore) Insert(_ context.Context, a *domain.LaunchAnalysis) error {
	if a == nil || a.LaunchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.LaunchID]; exists {
		return storage.ErrDuplicateKey
	}

	analysisCopy := *a
	analysisCopy.Patterns = append([]string(nil), a.Patterns...)
	s.data[a.LaunchID] = &analysisCopy
	return nil
}

// GetByLaunchID retrieves the analysis for a launch. Returns ErrNotFound if not exists.
func (s *LaunchAnalysisStore) GetByLaunchID(_ context.Context, launchID string) (*domain.LaunchAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[launchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	analysisCopy := *a
	analysisCopy.Patterns = append([]string(nil), a.Patterns...)
	return &analysisCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.LaunchAnalysisStore = (*LaunchAnalysisStore)(nil)
