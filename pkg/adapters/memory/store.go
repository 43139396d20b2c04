// Package memory provides an in-memory StateStore, used by tests and by
// deployments that accept losing sessions on restart.
package memory

import (
	"context"
	"sync"

	"github.com/onrampd/onramp/pkg/domain"
)

// Store implements ports.StateStore in memory. Safe for concurrent use.
type Store struct {
	data map[string]*domain.ExecutionState
	mu   sync.RWMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]*domain.ExecutionState)}
}

// Save stores a deep copy so callers cannot mutate store-held state.
func (s *Store) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[subjectID] = copied
	return nil
}

// Load returns a deep copy of the record.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[subjectID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, subjectID)
	return nil
}

// List returns every stored subject id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]string, 0, len(s.data))
	for id := range s.data {
		subjects = append(subjects, id)
	}
	return subjects, nil
}
