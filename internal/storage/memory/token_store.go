package memory

import (
	"context"
	"sort"
	"sync"

	"launchlab/internal/domain"
	"launchlab/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token_id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Upsert inserts or replaces a token keyed by token_id.
func (s *TokenStore) Upsert(_ context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	tokenCopy := *t
	s.data[t.TokenID] = &tokenCopy
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, tokenID string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetBySymbol retrieves a token by symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) GetBySymbol(_ context.Context, symbol string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.data {
		if t.Symbol == symbol {
			tokenCopy := *t
			return &tokenCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListActive retrieves all tokens with the active flag set.
func (s *TokenStore) ListActive(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Active {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	// Sort by symbol for deterministic iteration
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
