// Package kv defines the persistent tier used by tiercache.
//
// A KV is a flat namespace of string and long (int64) entries. tiercache
// stores one string entry per cache key holding the framed payload and one
// parallel long entry holding storedAt (unix millis). Strings are treated as
// opaque bytes: implementations MUST return exactly what was written.
//
// Important: the keyspaces "tc:v:" and "tc:t:" are owned by tiercache.
// External code MUST NOT write under these prefixes. Foreign values found
// there are treated as corruption and removed on read.
package kv

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("kv: store closed")

// KV is the persistent key-value contract. Must be safe for concurrent use
// and must serialize its own writes.
type KV interface {
	// ReadString returns (value, true, nil) on hit; ("", false, nil) on miss.
	ReadString(ctx context.Context, key string) (string, bool, error)
	WriteString(ctx context.Context, key, value string) error

	// ReadLong returns (value, true, nil) on hit; (0, false, nil) on miss.
	ReadLong(ctx context.Context, key string) (int64, bool, error)
	WriteLong(ctx context.Context, key string, value int64) error

	// Remove deletes a key of either kind. Missing keys are not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// ClearAll removes every entry in this store's namespace.
	ClearAll(ctx context.Context) error

	Close(ctx context.Context) error
}

// EntryWriter is implemented by stores that can write a value and its stamp
// atomically. tiercache prefers it over two separate writes.
type EntryWriter interface {
	WriteEntry(ctx context.Context, valueKey, value, stampKey string, storedAt int64) error
}
