package kvstore

import (
	"context"
	"errors"
	"sync"
)

var errInjected = errors.New("injected failure")

// MemoryStore keeps entries in process memory. It is the test double for the
// durable backends and the fallback store when no backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string

	failReads  bool
	failWrites bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get returns the stored value for key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failReads {
		return "", false, unavailable("get", key, errInjected)
	}
	value, ok := s.entries[key]
	return value, ok, nil
}

// Set stores value under key, replacing any prior value.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return unavailable("set", key, errInjected)
	}
	s.entries[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return unavailable("remove", key, errInjected)
	}
	delete(s.entries, key)
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FailReads makes subsequent reads fail with ErrUnavailable.
func (s *MemoryStore) FailReads(fail bool) {
	s.mu.Lock()
	s.failReads = fail
	s.mu.Unlock()
}

// FailWrites makes subsequent writes and removals fail with ErrUnavailable,
// the way a full or disabled browser store behaves.
func (s *MemoryStore) FailWrites(fail bool) {
	s.mu.Lock()
	s.failWrites = fail
	s.mu.Unlock()
}
