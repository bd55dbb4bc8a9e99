// Package memory is a process-local key-value store. Values do not survive a
// restart.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/starship-shop/internal/domain/credits"
)

var _ credits.Storage = (*Store)(nil)

// Store implements credits.Storage in memory.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
