// Package store provides an in-memory implementation of payreq.RequestStore:
// content-addressed storage of persisted request entities keyed by derived
// account address.
//
// Suitable for tests and single-instance embedding; a production host backs
// the same interface with its own account storage.
package store

import (
	"context"
	"sync"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

// InMemoryStore maps derived addresses to entity bytes. Thread-safe; stored
// and returned slices are copied so callers cannot alias internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	entities map[types.Address][]byte
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entities: make(map[types.Address][]byte)}
}

// Put stores a new entity. Fails with ErrCodeRequestExists when the address
// is already occupied.
func (s *InMemoryStore) Put(_ context.Context, addr types.Address, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[addr]; exists {
		return payreq.NewProtocolError(payreq.ErrCodeRequestExists, "an entity already exists at this address", nil)
	}
	s.entities[addr] = cloneBytes(data)
	return nil
}

// Get returns the entity stored at addr.
func (s *InMemoryStore) Get(_ context.Context, addr types.Address) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, exists := s.entities[addr]
	if !exists {
		return nil, notFound()
	}
	return cloneBytes(data), nil
}

// Update overwrites an existing entity.
func (s *InMemoryStore) Update(_ context.Context, addr types.Address, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[addr]; !exists {
		return notFound()
	}
	s.entities[addr] = cloneBytes(data)
	return nil
}

// Delete reclaims the storage at addr.
func (s *InMemoryStore) Delete(_ context.Context, addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[addr]; !exists {
		return notFound()
	}
	delete(s.entities, addr)
	return nil
}

// Len reports the number of stored entities.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func notFound() error {
	return payreq.NewProtocolError(payreq.ErrCodeRequestNotFound, "no entity exists at this address", nil)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure InMemoryStore implements payreq.RequestStore
var _ payreq.RequestStore = (*InMemoryStore)(nil)
