package memory

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"
)

// Ristretto is a bounded memory tier. Admission may reject a Set under
// pressure; the caller then falls through to the persistent tier on the
// next read. It cannot enumerate keys.
type Ristretto struct {
	c    *rc.Cache
	cost func(v any) int64
}

var _ Tier = (*Ristretto)(nil)

type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost returns the admission cost of a value; nil => 1 per entry.
	Cost func(v any) int64
}

func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        cfg.BufferItems,
		Metrics:            cfg.Metrics,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(any) int64 { return 1 }
	}
	return &Ristretto{c: c, cost: cost}, nil
}

func (t *Ristretto) Get(key string) (any, bool) {
	return t.c.Get(key)
}

// Set waits for the write buffer to drain so the value is visible to the
// next Get. A dropped Set also drops any older value under key.
func (t *Ristretto) Set(key string, v any) {
	if !t.c.Set(key, v, t.cost(v)) {
		t.c.Del(key)
		return
	}
	t.c.Wait()
}

func (t *Ristretto) Del(key string) {
	t.c.Del(key)
}

func (t *Ristretto) Clear() {
	t.c.Clear()
}

func (t *Ristretto) Close() {
	t.c.Wait()
	t.c.Close()
}

// Metrics exposes ristretto counters when enabled in the config.
func (t *Ristretto) Metrics() *rc.Metrics { return t.c.Metrics }
