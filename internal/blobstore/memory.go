package blobstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and single-process runs.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	files  map[uint64]PendingFile

	failOpen   bool
	failWrites bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[uint64]PendingFile)}
}

// FailOpen simulates storage that cannot be opened at all.
func (s *MemoryStore) FailOpen(fail bool) {
	s.mu.Lock()
	s.failOpen = fail
	s.mu.Unlock()
}

// FailWrites makes Put, Delete and Clear reject.
func (s *MemoryStore) FailWrites(fail bool) {
	s.mu.Lock()
	s.failWrites = fail
	s.mu.Unlock()
}

func (s *MemoryStore) check(write bool) error {
	if s.failOpen {
		return fmt.Errorf("%w: open refused", ErrNotOpen)
	}
	if write && s.failWrites {
		return fmt.Errorf("%w: write rejected", ErrNotOpen)
	}
	return nil
}

// Put inserts file under the next auto-increment id.
func (s *MemoryStore) Put(ctx context.Context, file PendingFile) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(true); err != nil {
		return 0, err
	}
	s.nextID++
	file.ID = s.nextID
	file.Data = append([]byte(nil), file.Data...)
	if file.Size == 0 {
		file.Size = int64(len(file.Data))
	}
	s.files[file.ID] = file
	return file.ID, nil
}

// All returns every pending file ordered by id.
func (s *MemoryStore) All(ctx context.Context) ([]PendingFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(false); err != nil {
		return nil, err
	}
	out := make([]PendingFile, 0, len(s.files))
	for _, file := range s.files {
		file.Data = append([]byte(nil), file.Data...)
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the given ids.
func (s *MemoryStore) Delete(ctx context.Context, ids ...uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(true); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.files, id)
	}
	return nil
}

// Clear removes every pending file. The id sequence keeps counting.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(true); err != nil {
		return err
	}
	s.files = make(map[uint64]PendingFile)
	return nil
}

// Count reports the number of pending files.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(false); err != nil {
		return 0, err
	}
	return int64(len(s.files)), nil
}
