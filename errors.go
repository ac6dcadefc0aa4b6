package tiercache

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable classifies persistent-tier failures. Only Clear
// returns it; every other operation degrades to a miss.
var ErrStorageUnavailable = errors.New("tiercache: storage unavailable")

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("tiercache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tiercache: %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap matches both ErrStorageUnavailable and the backend error.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorageUnavailable}
	}
	return []error{ErrStorageUnavailable, e.Err}
}
