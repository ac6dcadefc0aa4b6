// Package redis is a kv.KV backed by go-redis. All keys live under
// "<namespace>:" so several installations can share one Redis.
package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/kv"
)

var (
	ErrNilClient      = errors.New("redis kv: nil client")
	ErrEmptyNamespace = errors.New("redis kv: namespace is required")
)

const scanCount = 512

type Redis struct {
	rdb         goredis.UniversalClient
	ns          string
	closeClient bool
}

var (
	_ kv.KV          = (*Redis)(nil)
	_ kv.EntryWriter = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	Namespace   string // required; ClearAll only touches this namespace
	CloseClient bool   // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.Namespace == "" {
		return nil, ErrEmptyNamespace
	}
	return &Redis{rdb: cfg.Client, ns: cfg.Namespace, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(k string) string { return p.ns + ":" + k }

func (p *Redis) ReadString(ctx context.Context, key string) (string, bool, error) {
	s, err := p.rdb.Get(ctx, p.key(key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (p *Redis) WriteString(ctx context.Context, key, value string) error {
	return p.rdb.Set(ctx, p.key(key), value, 0).Err()
}

func (p *Redis) ReadLong(ctx context.Context, key string) (int64, bool, error) {
	v, err := p.rdb.Get(ctx, p.key(key)).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (p *Redis) WriteLong(ctx context.Context, key string, value int64) error {
	return p.rdb.Set(ctx, p.key(key), value, 0).Err()
}

// WriteEntry sets value and stamp inside MULTI/EXEC.
func (p *Redis) WriteEntry(ctx context.Context, valueKey, value, stampKey string, storedAt int64) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.key(valueKey), value, 0)
		pipe.Set(ctx, p.key(stampKey), storedAt, 0)
		return nil
	})
	return err
}

func (p *Redis) Remove(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.key(key)).Err()
}

func (p *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := p.scan(ctx, p.key(escapeGlob(prefix))+"*", func(k string) {
		out = append(out, strings.TrimPrefix(k, p.ns+":"))
	})
	return out, err
}

// ClearAll deletes every key in the namespace in SCAN-sized batches.
func (p *Redis) ClearAll(ctx context.Context) error {
	batch := make([]string, 0, scanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := p.rdb.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	var delErr error
	err := p.scan(ctx, escapeGlob(p.ns)+":*", func(k string) {
		batch = append(batch, k)
		if len(batch) == scanCount && delErr == nil {
			delErr = flush()
		}
	})
	if err != nil {
		return err
	}
	if delErr != nil {
		return delErr
	}
	return flush()
}

func (p *Redis) scan(ctx context.Context, match string, fn func(string)) error {
	it := p.rdb.Scan(ctx, 0, match, scanCount).Iterator()
	for it.Next(ctx) {
		fn(it.Val())
	}
	return it.Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
