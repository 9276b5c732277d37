// Package memory implements driven ports held in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps the credential pair for the lifetime of the process.
// It is used when no encryption key is configured for the SQLite store.
type CredentialStore struct {
	mu   sync.RWMutex
	pair model.CredentialPair
}

// NewCredentialStore creates a store holding the given initial pair, which may
// be the zero pair.
func NewCredentialStore(initial model.CredentialPair) *CredentialStore {
	return &CredentialStore{pair: initial}
}

// Get returns the current pair.
func (s *CredentialStore) Get(_ context.Context) (model.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

// Set swaps in a new pair. The next Get returns both new tokens.
func (s *CredentialStore) Set(_ context.Context, pair model.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Clear drops the current pair.
func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = model.CredentialPair{}
	return nil
}
