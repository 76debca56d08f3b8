package memory

import (
	"context"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu          sync.RWMutex
	strategies  map[string]*domain.Strategy            // keyed by strategy_id
	performance map[string]*domain.StrategyPerformance // keyed by strategy_id
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		strategies:  make(map[string]*domain.Strategy),
		performance: make(map[string]*domain.StrategyPerformance),
	}
}

// Insert adds a new strategy. Returns ErrDuplicateKey if strategy_id exists.
func (s *StrategyStore) Insert(_ context.Context, st *domain.Strategy) error {
	if st == nil || st.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.strategies[st.StrategyID]; exists {
		return storage.ErrDuplicateKey
	}

	strategyCopy := *st
	s.strategies[st.StrategyID] = &strategyCopy
	return nil
}

// GetActive retrieves the single active strategy.
func (s *StrategyStore) GetActive(_ context.Context) (*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.strategies {
		if st.Active {
			strategyCopy := *st
			return &strategyCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetPerformance retrieves the rolling performance for a strategy.
func (s *StrategyStore) GetPerformance(_ context.Context, strategyID string) (*domain.StrategyPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.performance[strategyID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	perfCopy := *p
	return &perfCopy, nil
}

// UpsertPerformance inserts or replaces the performance rollup for a strategy.
func (s *StrategyStore) UpsertPerformance(_ context.Context, p *domain.StrategyPerformance) error {
	if p == nil || p.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	perfCopy := *p
	s.performance[p.StrategyID] = &perfCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.StrategyStore = (*StrategyStore)(nil)
