// Package bigcache is an in-process kv.KV backed by allegro/bigcache.
// Nothing survives a restart; use it for ephemeral sessions and tests.
package bigcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tiercache/kv"
)

type Store struct {
	c *bc.BigCache
}

var (
	_ kv.KV          = (*Store)(nil)
	_ kv.EntryWriter = (*Store)(nil)
)

type Config struct {
	LifeWindow         time.Duration // 0 => 7 days; bigcache has no per-entry TTL
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 7 * 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) ReadString(_ context.Context, key string) (string, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *Store) WriteString(_ context.Context, key, value string) error {
	return s.c.Set(key, []byte(value))
}

func (s *Store) ReadLong(_ context.Context, key string) (int64, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(b) != 8 {
		return 0, false, fmt.Errorf("bigcache kv: %q is not a long (%d bytes)", key, len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), true, nil
}

func (s *Store) WriteLong(_ context.Context, key string, value int64) error {
	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], uint64(value))
	return s.c.Set(key, u8[:])
}

// WriteEntry is not atomic across both keys in bigcache; it exists so the
// stamp is always written after the value.
func (s *Store) WriteEntry(ctx context.Context, valueKey, value, stampKey string, storedAt int64) error {
	if err := s.WriteString(ctx, valueKey, value); err != nil {
		return err
	}
	return s.WriteLong(ctx, stampKey, storedAt)
}

func (s *Store) Remove(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			// entry vanished between SetNext and Value
			continue
		}
		if k := info.Key(); strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) ClearAll(_ context.Context) error {
	return s.c.Reset()
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
