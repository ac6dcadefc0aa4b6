package tiercache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/kv"
	"github.com/unkn0wn-root/tiercache/memory"
	"github.com/unkn0wn-root/tiercache/shape"
	"github.com/unkn0wn-root/tiercache/ttl"
)

// Cache is the caller-facing contract: one decision point per read
// ("must I fetch?") and no errors on any path.
type Cache[T any] interface {
	GetIfValid(ctx context.Context, category, subkey string) ([]T, bool)
	Put(ctx context.Context, category, subkey string, items []T) bool
	InvalidateCategory(ctx context.Context, category string)
	ClearAll(ctx context.Context)
}

var _ Cache[struct{}] = (*Manager[struct{}])(nil)

// Options tune the Store.
// Only KV is required; others have sensible defaults.
type Options struct {
	// Required
	KV kv.KV

	Memory    memory.Tier      // nil => memory.NewMap()
	Policy    *ttl.Policy      // nil => ttl.New(ttl.DefaultTTL, ttl.DefaultRules()...)
	Logger    Logger           // if nil, NopLogger is used
	Hooks     Hooks            // if nil, NopHooks is used
	OpTimeout time.Duration    // per persistent-tier call; 0 => 2s
	Now       func() time.Time // nil => time.Now
}

// SessionFunc returns the current user/session id, or "" when anonymous.
type SessionFunc func() string

// FetchFunc performs the network request for one cache key and returns the
// raw response body.
type FetchFunc func(ctx context.Context) ([]byte, error)

// ManagerOptions tune a Manager. All fields are optional.
type ManagerOptions[T any] struct {
	Codec codec.Codec[[]T] // nil => codec.JSON[[]T]

	// Session namespaces the categories listed in UserScoped. Keys of those
	// categories get a "_<session>" suffix.
	Session    SessionFunc
	UserScoped []string

	// Normalize options used by Load. Hooks are installed as the observer
	// unless an option overrides it.
	Normalize []shape.Option

	// Accept reports whether a normalized envelope may be cached.
	// nil => code == shape.CodeOK.
	Accept func(code int) bool
}

// Result is what Load returns. Err is the fetch error when the result was
// served from stale cache or is an error envelope.
type Result[T any] struct {
	shape.Envelope[T]
	Cached bool
	Stale  bool
	Err    error
}
