package audit

import (
	"errors"
	"fmt"
)

// ErrStorageClosed is returned by storage operations after Close.
var ErrStorageClosed = errors.New("audit storage is closed")

// StorageError wraps a failure in a storage backend.
type StorageError struct {
	Backend string // "memory" or "sqlite"
	Op      string // Operation that failed
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{
		Backend: backend,
		Op:      op,
		Err:     err,
	}
}
