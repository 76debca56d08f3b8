package memory

import (
	"context"
	"sort"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
type PortfolioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Portfolio // keyed by portfolio_id
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		data: make(map[string]*domain.Portfolio),
	}
}

// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(_ context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PortfolioID]; exists {
		return storage.ErrDuplicateKey
	}

	portfolioCopy := *p
	s.data[p.PortfolioID] = &portfolioCopy
	return nil
}

// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(_ context.Context, portfolioID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[portfolioID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	portfolioCopy := *p
	return &portfolioCopy, nil
}

// ListLaunchTraders retrieves portfolios with auto-trading and launch-trading enabled.
func (s *PortfolioStore) ListLaunchTraders(_ context.Context) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Portfolio
	for _, p := range s.data {
		if p.AutoTrading && p.LaunchTrading {
			portfolioCopy := *p
			result = append(result, &portfolioCopy)
		}
	}

	// Sort by portfolio_id for deterministic iteration
	sort.Slice(result, func(i, j int) bool {
		return result[i].PortfolioID < result[j].PortfolioID
	})

	return result, nil
}

// AdjustCash applies delta to a portfolio's cash balance.
// Returns ErrConflict if the resulting balance would be negative.
func (s *PortfolioStore) AdjustCash(_ context.Context, portfolioID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[portfolioID]
	if !exists {
		return storage.ErrNotFound
	}

	next := p.CashBalance + delta
	if next < 0 {
		return storage.ErrConflict
	}

	p.CashBalance = next
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)
