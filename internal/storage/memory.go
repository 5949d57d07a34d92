package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/clix-so/clix-go/pkg/types"
)

// MemoryStore is an in-memory KeyValueStore with the same JSON round-trip
// semantics as SQLiteStore. Used by tests and the simulator.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ types.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get decodes the stored value for key into dest.
func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, types.NewAppError(types.ErrCodeStorageEncode, fmt.Sprintf("failed to decode value for key %s", key), err)
	}
	return true, nil
}

// Set stores the JSON encoding of value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageEncode, fmt.Sprintf("failed to encode value for key %s", key), err)
	}

	s.mu.Lock()
	s.values[key] = string(raw)
	s.mu.Unlock()
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored keys. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
