package tiercache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/internal/util"
	"github.com/unkn0wn-root/tiercache/shape"
)

var errNilFetch = errors.New("tiercache: nil fetch func")

// Manager is a typed view over a Store. Values are lists of T keyed by
// category and optional subkey. No method returns an error: failures are
// misses or no-ops, reported through the Store's Hooks and Logger.
//
// Slices returned by Manager are shared with the memory tier and must not
// be modified.
type Manager[T any] struct {
	store   *Store
	codec   codec.Codec[[]T]
	session SessionFunc
	scoped  map[string]struct{}
	norm    []shape.Option
	accept  func(code int) bool

	group singleflight.Group
}

// NewManager returns a Manager over s. Zero ManagerOptions select the JSON
// codec, no session scoping and code == shape.CodeOK as the accept rule.
// The Store's Hooks also observe normalization.
func NewManager[T any](s *Store, opts ManagerOptions[T]) (*Manager[T], error) {
	if s == nil {
		return nil, fmt.Errorf("tiercache: store is required")
	}
	m := &Manager[T]{
		store:   s,
		codec:   opts.Codec,
		session: opts.Session,
		scoped:  make(map[string]struct{}, len(opts.UserScoped)),
		accept:  opts.Accept,
	}
	if m.codec == nil {
		m.codec = codec.JSON[[]T]{}
	}
	if m.accept == nil {
		m.accept = func(code int) bool { return code == shape.CodeOK }
	}
	for _, c := range opts.UserScoped {
		m.scoped[strings.TrimSuffix(c, "_")] = struct{}{}
	}
	m.norm = append([]shape.Option{shape.WithObserver(s.hooks)}, opts.Normalize...)
	return m, nil
}

// Key returns the storage key for category and subkey, including the
// session suffix for user-scoped categories.
func (m *Manager[T]) Key(category, subkey string) string {
	k := util.JoinKey(category, subkey)
	if m.session == nil {
		return k
	}
	if _, ok := m.scoped[strings.TrimSuffix(category, "_")]; ok {
		k = util.ScopeKey(k, m.session())
	}
	return k
}

// GetIfValid returns the cached items when present and fresh.
func (m *Manager[T]) GetIfValid(ctx context.Context, category, subkey string) ([]T, bool) {
	return m.GetKeyIfValid(ctx, m.Key(category, subkey))
}

// GetKeyIfValid is GetIfValid for a key already built with Key.
func (m *Manager[T]) GetKeyIfValid(ctx context.Context, key string) ([]T, bool) {
	if !m.store.IsValid(ctx, key) {
		return nil, false
	}
	return m.get(ctx, key)
}

// GetStale returns the cached items regardless of age, for offline display.
func (m *Manager[T]) GetStale(ctx context.Context, category, subkey string) ([]T, bool) {
	return m.get(ctx, m.Key(category, subkey))
}

// Put caches items and reports whether they were stored. An empty list is
// not cached: the key is dropped so the next read is a miss.
func (m *Manager[T]) Put(ctx context.Context, category, subkey string, items []T) bool {
	return m.PutKey(ctx, m.Key(category, subkey), items)
}

// PutKey is Put for a key already built with Key.
func (m *Manager[T]) PutKey(ctx context.Context, key string, items []T) bool {
	if len(items) == 0 {
		m.store.hooks.EmptyWrite(key)
		m.store.log.Debug("empty write dropped", Fields{"key": key})
		m.store.Invalidate(ctx, key)
		return false
	}
	payload, err := m.codec.Encode(items)
	if err != nil {
		m.store.log.Warn("encode failed; entry dropped", Fields{"key": key, "err": err})
		m.store.Invalidate(ctx, key)
		return false
	}
	// Memory holds what a KV read would yield, never the caller's slice.
	stored, err := m.codec.Decode(payload)
	if err != nil {
		m.store.log.Warn("encoded entry does not decode; entry dropped", Fields{"key": key, "err": err})
		m.store.Invalidate(ctx, key)
		return false
	}
	return m.store.Put(ctx, key, stored, payload)
}

// InvalidateCategory drops the bare category entry and every
// "<category>_..." entry. Other categories are untouched.
func (m *Manager[T]) InvalidateCategory(ctx context.Context, category string) {
	m.store.InvalidatePrefix(ctx, util.CategoryPrefix(category))
	m.store.Invalidate(ctx, util.JoinKey(category, ""))
}

// ClearAll empties both tiers. A persistent-tier failure is logged and
// reported through Hooks by the Store; the memory tier is cleared anyway.
func (m *Manager[T]) ClearAll(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.store.log.Warn("clear all degraded", Fields{"err": err})
	}
}

// Load is the read-through path. A fresh cache hit is returned as is.
// Otherwise fetch runs once per key across concurrent callers, the body is
// normalized with dec (nil => shape.JSONItem) and accepted envelopes are
// cached. Envelopes recovered from malformed bodies are returned but never
// cached. When fetch fails, stale cached items are served with Stale set;
// with nothing cached the result is an error envelope.
//
// Concurrent callers share the first caller's fetch and its context.
func (m *Manager[T]) Load(ctx context.Context, category, subkey string, fetch FetchFunc, dec shape.ItemDecoder[T]) Result[T] {
	key := m.Key(category, subkey)
	if items, ok := m.GetKeyIfValid(ctx, key); ok {
		return Result[T]{Envelope: cachedEnvelope(items), Cached: true}
	}
	if dec == nil {
		dec = shape.JSONItem[T]()
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		if fetch == nil {
			return nil, errNilFetch
		}
		raw, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		env := shape.Normalize(raw, dec, m.norm...)
		if env.Recovered {
			m.store.log.Warn("truncated or malformed response; not cached", Fields{"key": key})
		} else if m.accept(env.Code) {
			m.PutKey(ctx, key, env.Items)
		}
		return env, nil
	})
	if err != nil {
		if items, ok := m.get(ctx, key); ok {
			m.store.log.Info("fetch failed; serving stale entry", Fields{"key": key, "err": err})
			return Result[T]{Envelope: cachedEnvelope(items), Cached: true, Stale: true, Err: err}
		}
		m.store.log.Warn("fetch failed; nothing cached", Fields{"key": key, "err": err})
		return Result[T]{Envelope: shape.ErrorEnvelope[T](err.Error()), Err: err}
	}
	return Result[T]{Envelope: v.(shape.Envelope[T])}
}

func (m *Manager[T]) get(ctx context.Context, key string) ([]T, bool) {
	v, ok := m.store.Get(ctx, key, m.decode)
	if !ok {
		return nil, false
	}
	items, ok := v.([]T)
	if !ok {
		m.store.log.Debug("memory entry has a different type; treated as miss", Fields{"key": key, "type": fmt.Sprintf("%T", v)})
		return nil, false
	}
	return items, true
}

func (m *Manager[T]) decode(b []byte) (any, error) {
	items, err := m.codec.Decode(b)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func cachedEnvelope[T any](items []T) shape.Envelope[T] {
	return shape.Envelope[T]{
		Code:  shape.CodeOK,
		Total: len(items),
		Items: items,
		Shape: shape.ArrayOfObjects,
	}
}
