// Package storage provides the KV backends behind the symbol-resolution
// cache and the credential store.
package storage

import (
	"context"
	"sync"

	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

// MemoryStore is a mutex-guarded in-memory KVStore. It is the default for
// tests and the offline CLI, where persistence across runs buys nothing.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory KV store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ interfaces.KVStore = (*MemoryStore)(nil)
