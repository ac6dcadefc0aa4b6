// Package memory holds the in-process tier of tiercache. Values are kept
// decoded, so a hit costs no deserialization.
package memory

import (
	"strings"
	"sync"
)

// Tier is the memory-tier contract. Must be safe for concurrent use.
type Tier interface {
	Get(key string) (any, bool)
	Set(key string, v any)
	Del(key string)
	Clear()
}

// Ranger is implemented by tiers that can enumerate their keys.
type Ranger interface {
	Keys(prefix string) []string
}

// Map is an unbounded map guarded by a RWMutex. The zero value is not
// ready to use; construct with NewMap.
type Map struct {
	mu sync.RWMutex
	m  map[string]any
}

var (
	_ Tier   = (*Map)(nil)
	_ Ranger = (*Map)(nil)
)

func NewMap() *Map {
	return &Map{m: make(map[string]any)}
}

func (t *Map) Get(key string) (any, bool) {
	t.mu.RLock()
	v, ok := t.m[key]
	t.mu.RUnlock()
	return v, ok
}

func (t *Map) Set(key string, v any) {
	t.mu.Lock()
	t.m[key] = v
	t.mu.Unlock()
}

func (t *Map) Del(key string) {
	t.mu.Lock()
	delete(t.m, key)
	t.mu.Unlock()
}

func (t *Map) Clear() {
	t.mu.Lock()
	t.m = make(map[string]any)
	t.mu.Unlock()
}

func (t *Map) Keys(prefix string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for k := range t.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func (t *Map) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}
