// Package store provides UserModelStore implementations: a process-local
// in-memory store and, in the badger subpackage, a durable embedded store.
package store

import (
	"context"
	"sync"

	"github.com/tutormesh/tutormesh/core"
)

// InMemoryStore keeps belief records in process memory. Suitable for tests,
// demos and single-run sessions; nothing survives a restart.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*core.BayesianBeliefs
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*core.BayesianBeliefs)}
}

// Load returns a copy of the stored beliefs, or (nil, nil) for an unknown
// user.
func (s *InMemoryStore) Load(_ context.Context, userID string) (*core.BayesianBeliefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

// Save stores a copy of the beliefs record.
func (s *InMemoryStore) Save(_ context.Context, beliefs *core.BayesianBeliefs) error {
	s.mu.Lock()
	s.users[beliefs.UserID] = beliefs.Clone()
	s.mu.Unlock()
	return nil
}

// Close implements UserModelStore; there is nothing to release.
func (s *InMemoryStore) Close() error { return nil }
