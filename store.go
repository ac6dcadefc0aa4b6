package tiercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/tiercache/internal/util"
	"github.com/unkn0wn-root/tiercache/internal/wire"
	"github.com/unkn0wn-root/tiercache/kv"
	"github.com/unkn0wn-root/tiercache/memory"
	"github.com/unkn0wn-root/tiercache/ttl"
)

const (
	defaultOpTimeout = 2 * time.Second
	lockStripes      = 64
)

// Decoder turns a persisted payload back into the value kept in memory.
type Decoder func(payload []byte) (any, error)

// entry is what the memory tier holds: the decoded value and its stamp.
type entry struct {
	value    any
	storedAt int64 // unix millis; -1 when the stamp was missing
}

// Store is the two-tier store. Reads prefer memory; a memory miss reads the
// KV, decodes and repopulates memory. Writes go to the KV first and are
// mirrored into memory only when the KV accepted them.
//
// Locking: Clear holds order exclusively; every other operation holds it
// shared plus, for mutations and KV loads, a per-key stripe. A reader can
// therefore never see memory cleared while the KV still holds the entry.
type Store struct {
	kv      kv.KV
	mem     memory.Tier
	policy  *ttl.Policy
	log     Logger
	hooks   Hooks
	timeout time.Duration
	now     func() time.Time

	order sync.RWMutex
	locks [lockStripes]sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// New returns a Store over opts.KV. Zero-valued options take their defaults:
// a Map memory tier, the DefaultRules policy, a 2s op timeout and no-op
// logging and hooks.
func New(opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, fmt.Errorf("tiercache: kv is required")
	}
	if opts.OpTimeout < 0 {
		return nil, fmt.Errorf("tiercache: negative op timeout")
	}

	s := &Store{kv: opts.KV, mem: opts.Memory, policy: opts.Policy, now: opts.Now}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.timeout = coalesce[time.Duration](opts.OpTimeout, defaultOpTimeout)
	if s.mem == nil {
		s.mem = memory.NewMap()
	}
	if s.policy == nil {
		s.policy = ttl.New(ttl.DefaultTTL, ttl.DefaultRules()...)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Policy returns the TTL policy the Store validates entries against.
func (s *Store) Policy() *ttl.Policy { return s.policy }

// Put persists payload under key with storedAt = now and mirrors value into
// memory. value must be what decoding payload yields, so both tiers agree. It reports whether the entry was stored; on a KV failure the key
// is dropped from memory so no tier serves the superseded value.
func (s *Store) Put(ctx context.Context, key string, value any, payload []byte) bool {
	s.order.RLock()
	defer s.order.RUnlock()
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	now := s.now().UnixMilli()
	if err := s.writeEntry(ctx, key, wire.EncodeValue(payload), now); err != nil {
		s.mem.Del(key)
		s.dropStamp(ctx, key)
		s.storageErr("put", key, err)
		return false
	}
	s.mem.Set(key, entry{value: value, storedAt: now})
	return true
}

// Get returns the value under key regardless of age. dec rebuilds the value
// from the persisted payload on a memory miss; nil dec yields the payload
// bytes. Storage failures and undecodable entries are misses; the latter
// are removed from both tiers.
func (s *Store) Get(ctx context.Context, key string, dec Decoder) (any, bool) {
	s.order.RLock()
	defer s.order.RUnlock()

	if e, ok := s.memEntry(key); ok {
		return e.value, true
	}

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()
	if e, ok := s.memEntry(key); ok {
		return e.value, true
	}

	e, found, keep := s.load(ctx, key, dec)
	if !found {
		return nil, false
	}
	if keep {
		s.mem.Set(key, e)
	}
	return e.value, true
}

// IsValid reports whether key has a stamp younger than its TTL.
// The boundary instant (age == ttl) is invalid.
func (s *Store) IsValid(ctx context.Context, key string) bool {
	s.order.RLock()
	defer s.order.RUnlock()

	storedAt, ok := s.stamp(ctx, key)
	if !ok {
		return false
	}
	if s.now().UnixMilli()-storedAt < s.policy.MillisFor(key) {
		return true
	}
	s.hooks.Expired(key)
	return false
}

// StoredAt returns the stamp recorded for key.
func (s *Store) StoredAt(ctx context.Context, key string) (time.Time, bool) {
	s.order.RLock()
	defer s.order.RUnlock()
	ms, ok := s.stamp(ctx, key)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Invalidate removes key from both tiers. Failures are reported via hooks.
func (s *Store) Invalidate(ctx context.Context, key string) {
	s.order.RLock()
	defer s.order.RUnlock()
	s.invalidate(ctx, key)
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many distinct keys were found. Memory tiers that cannot enumerate keys
// rely on the KV listing.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) int {
	s.order.RLock()
	defer s.order.RUnlock()

	keys := make(map[string]struct{})
	if r, ok := s.mem.(memory.Ranger); ok {
		for _, k := range r.Keys(prefix) {
			keys[k] = struct{}{}
		}
	}

	lctx, cancel := s.opCtx(ctx)
	for _, p := range [...]string{util.ValueKey(prefix), util.StampKey(prefix)} {
		sks, err := s.kv.Keys(lctx, p)
		if err != nil {
			s.storageErr("keys", prefix, err)
			continue
		}
		for _, sk := range sks {
			if k, ok := util.LogicalKey(sk); ok {
				keys[k] = struct{}{}
			}
		}
	}
	cancel()

	for k := range keys {
		s.invalidate(ctx, k)
	}
	if len(keys) > 0 {
		s.log.Debug("invalidated prefix", Fields{"prefix": prefix, "keys": len(keys)})
	}
	return len(keys)
}

// Clear removes every entry from both tiers. It is the only operation that
// reports storage failures: the returned error wraps ErrStorageUnavailable.
// Memory is cleared even when the KV fails; stamps are then dropped one by
// one so surviving values read as expired.
func (s *Store) Clear(ctx context.Context) error {
	s.order.Lock()
	defer s.order.Unlock()

	cctx, cancel := s.opCtx(ctx)
	defer cancel()
	err := s.kv.ClearAll(cctx)
	s.mem.Clear()
	if err == nil {
		return nil
	}

	s.hooks.StorageError("clear", "", err)
	s.log.Error("clear failed on persistent tier", Fields{"err": err})
	if derr := s.dropAllStamps(ctx); derr != nil {
		err = errors.Join(err, derr)
	}
	return &StorageError{Op: "clear", Err: err}
}

// Close releases the KV and, when it supports it, the memory tier.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if c, ok := s.mem.(interface{ Close() }); ok {
			c.Close()
		}
		s.closeErr = s.kv.Close(ctx)
	})
	return s.closeErr
}

// internals

func (s *Store) lockFor(key string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(key)%lockStripes]
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) memEntry(key string) (entry, bool) {
	v, ok := s.mem.Get(key)
	if !ok {
		return entry{}, false
	}
	e, ok := v.(entry)
	return e, ok
}

func (s *Store) writeEntry(ctx context.Context, key string, framed []byte, storedAt int64) error {
	wctx, cancel := s.opCtx(ctx)
	defer cancel()
	vk, sk := util.ValueKey(key), util.StampKey(key)
	if w, ok := s.kv.(kv.EntryWriter); ok {
		return w.WriteEntry(wctx, vk, string(framed), sk, storedAt)
	}
	if err := s.kv.WriteString(wctx, vk, string(framed)); err != nil {
		return err
	}
	return s.kv.WriteLong(wctx, sk, storedAt)
}

// load reads key from the KV. keep is false when the stamp could not be read,
// so the next Get retries the KV instead of pinning a stampless entry.
func (s *Store) load(ctx context.Context, key string, dec Decoder) (e entry, found, keep bool) {
	lctx, cancel := s.opCtx(ctx)
	defer cancel()

	raw, ok, err := s.kv.ReadString(lctx, util.ValueKey(key))
	if err != nil {
		s.storageErr("read", key, err)
		return entry{}, false, false
	}
	if !ok {
		return entry{}, false, false
	}
	payload, err := wire.DecodeValue([]byte(raw))
	if err != nil {
		s.heal(lctx, key, "corrupt", err)
		return entry{}, false, false
	}

	var v any = payload
	if dec != nil {
		if v, err = dec(payload); err != nil {
			s.heal(lctx, key, "value_decode", err)
			return entry{}, false, false
		}
	}

	e = entry{value: v, storedAt: -1}
	ms, ok, err := s.kv.ReadLong(lctx, util.StampKey(key))
	switch {
	case err != nil:
		s.storageErr("read_stamp", key, err)
		return e, true, false
	case ok:
		e.storedAt = ms
	}
	return e, true, true
}

func (s *Store) stamp(ctx context.Context, key string) (int64, bool) {
	if e, ok := s.memEntry(key); ok && e.storedAt >= 0 {
		return e.storedAt, true
	}
	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	ms, ok, err := s.kv.ReadLong(sctx, util.StampKey(key))
	if err != nil {
		s.storageErr("read_stamp", key, err)
		return 0, false
	}
	if !ok || ms < 0 {
		return 0, false
	}
	return ms, true
}

// invalidate drops memory first, then the stamp, then the value: a
// concurrent reader sees either the whole entry, an expired one, or a miss.
// Caller holds order.
func (s *Store) invalidate(ctx context.Context, key string) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	s.mem.Del(key)
	rctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.kv.Remove(rctx, util.StampKey(key)); err != nil {
		s.storageErr("remove", key, err)
	}
	if err := s.kv.Remove(rctx, util.ValueKey(key)); err != nil {
		s.storageErr("remove", key, err)
	}
}

func (s *Store) heal(ctx context.Context, key, reason string, cause error) {
	_ = s.kv.Remove(ctx, util.StampKey(key))
	_ = s.kv.Remove(ctx, util.ValueKey(key))
	s.mem.Del(key)
	s.hooks.SelfHeal(key, reason)
	s.log.Debug("self-healed entry", Fields{"key": key, "reason": reason, "err": cause})
}

// dropStamp is best effort after a failed write: without a stamp a half
// written value can never read as valid.
func (s *Store) dropStamp(ctx context.Context, key string) {
	rctx, cancel := s.opCtx(ctx)
	defer cancel()
	_ = s.kv.Remove(rctx, util.StampKey(key))
}

func (s *Store) dropAllStamps(ctx context.Context) error {
	rctx, cancel := s.opCtx(ctx)
	defer cancel()
	sks, err := s.kv.Keys(rctx, util.StampPrefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, sk := range sks {
		if err := s.kv.Remove(rctx, sk); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) storageErr(op, key string, err error) {
	s.hooks.StorageError(op, key, err)
	s.log.Warn("persistent tier degraded to miss", Fields{"op": op, "key": key, "err": err})
}
