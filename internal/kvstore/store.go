// Package kvstore provides the durable, string-keyed store that backs the
// persistent and TTL caches.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable reports that the backing storage could not be read or written,
// for example because it is disabled, full or unreachable.
var ErrUnavailable = errors.New("kvstore: storage unavailable")

// Store is a durable key-value store. Writes fully replace prior values and the
// last write wins. Entries may disappear at any time through external eviction.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrUnavailable, op, key, err)
}
