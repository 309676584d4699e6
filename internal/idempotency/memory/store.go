package memory

import (
	"context"
	"sync"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// Store retains idempotency claims for replaying duplicate requests.
type Store struct {
	mu    sync.Mutex
	items map[string]ports.StoredResponse
}

// NewStore creates a new in-memory idempotency store.
func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

// Claim registers the key, or returns the existing record when another
// request already holds it.
func (s *Store) Claim(_ context.Context, key, batchToken string) (*ports.StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		copy := existing
		return &copy, false, nil
	}
	s.items[key] = ports.StoredResponse{BatchToken: batchToken}
	return nil, true, nil
}

// Complete records the response to replay for a claimed key.
func (s *Store) Complete(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = response
	return nil
}

// Release drops a claim so the key can be retried.
func (s *Store) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
