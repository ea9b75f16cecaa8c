// Package usage meters chat calls per API key. The widget's metered variant
// asks for the remaining allowance before contacting the model and the server
// burns one call per real-mode request.
package usage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownKey is returned for API keys that were never provisioned.
var ErrUnknownKey = errors.New("usage: unknown api key")

// Store tracks how many calls each API key has left.
type Store interface {
	// Remaining reports the calls left for the key, ErrUnknownKey if the key
	// is not provisioned.
	Remaining(ctx context.Context, apiKey string) (int, error)

	// Consume burns one call. Consuming below zero is not an error; the
	// balance floors at zero.
	Consume(ctx context.Context, apiKey string) error
}

// MemoryStore is the in-process Store used when no database is configured.
type MemoryStore struct {
	mu        sync.Mutex
	remaining map[string]int
}

// NewMemoryStore seeds a store with per-key allowances.
func NewMemoryStore(allowances map[string]int) *MemoryStore {
	remaining := make(map[string]int, len(allowances))
	for k, v := range allowances {
		remaining[k] = v
	}
	return &MemoryStore{remaining: remaining}
}

func (s *MemoryStore) Remaining(_ context.Context, apiKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.remaining[apiKey]
	if !ok {
		return 0, ErrUnknownKey
	}
	return n, nil
}

func (s *MemoryStore) Consume(_ context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.remaining[apiKey]
	if !ok {
		return ErrUnknownKey
	}
	if n > 0 {
		s.remaining[apiKey] = n - 1
	}
	return nil
}
