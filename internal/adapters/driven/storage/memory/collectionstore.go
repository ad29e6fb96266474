package memory

import (
	"context"
	"sync"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore is an in-memory implementation of driven.CollectionStore.
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]domain.Collection
}

// NewCollectionStore creates a new in-memory collection store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		collections: make(map[string]domain.Collection),
	}
}

// Save stores or updates a collection.
func (s *CollectionStore) Save(_ context.Context, collection *domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection.ID] = *collection
	return nil
}

// Get retrieves a collection by ID.
func (s *CollectionStore) Get(_ context.Context, id string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	collection, ok := s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &collection, nil
}

// GetByName retrieves a collection by owner and name.
func (s *CollectionStore) GetByName(_ context.Context, owner, name string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.collections {
		collection := s.collections[id]
		if collection.Owner == owner && collection.Name == name {
			return &collection, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all collections.
func (s *CollectionStore) List(_ context.Context) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Collection, 0, len(s.collections))
	for id := range s.collections {
		result = append(result, s.collections[id])
	}
	return result, nil
}
