package cache

import "fmt"

// StorageError describes a cache operation that could not complete. The
// fire-and-forget wrappers log it; Store and Load return it.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}
