// Package blobstore holds files received on the share route until the page
// collects them. It is the only rendezvous between the edge and the page.
package blobstore

import (
	"context"
	"errors"
	"sort"
	"time"
)

var (
	// ErrNotOpen reports that the store could not be opened or used.
	ErrNotOpen = errors.New("blobstore: store unavailable")
	// ErrVersion reports a recorded schema version newer than this binary understands.
	ErrVersion = errors.New("blobstore: store version is newer than supported")
)

// SchemaVersion is the object store layout this code reads and writes.
const SchemaVersion = 1

// PendingFile is a shared file waiting to be imported.
type PendingFile struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is an asynchronous, transactional object store with auto-generated keys.
// Each method is one transaction; there is no atomicity across calls.
type Store interface {
	Put(ctx context.Context, file PendingFile) (uint64, error)
	All(ctx context.Context) ([]PendingFile, error)
	Delete(ctx context.Context, ids ...uint64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Latest returns the most recent file by timestamp. Ties go to the higher id,
// which was inserted later.
func Latest(files []PendingFile) (PendingFile, bool) {
	if len(files) == 0 {
		return PendingFile{}, false
	}

	sorted := make([]PendingFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted[0], true
}
