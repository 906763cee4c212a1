package memoryStore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
)

// ErrObjectNotFound is returned when no object exists under a key
var ErrObjectNotFound = errors.New("artifact object not found")

// MemoryStore implements the artifact store interface with in-memory
// storage. Used only for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new memory-based artifact store
func New() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

// Put stores content and returns its content-addressed object key
func (s *MemoryStore) Put(_ context.Context, content []byte) (string, error) {
	hash := sha256.Sum256(content)
	key := hex.EncodeToString(hash[:])

	stored := make([]byte, len(content))
	copy(stored, content)

	s.mu.Lock()
	s.objects[key] = stored
	s.mu.Unlock()

	return key, nil
}

// Get retrieves the content stored under key
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	content, exists := s.objects[key]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrObjectNotFound
	}

	// Return a copy to prevent external modifications
	result := make([]byte, len(content))
	copy(result, content)

	return result, nil
}

// Delete removes the object stored under key
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return ErrObjectNotFound
	}

	delete(s.objects, key)

	return nil
}

// Count returns the number of objects stored (useful for testing)
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
