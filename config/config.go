// Package config loads tiercache settings from YAML and the environment and
// wires them into a ready Store.
//
// Precedence: built-in defaults < YAML file < TIERCACHE_* environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/kv"
	"github.com/unkn0wn-root/tiercache/kv/bigcache"
	"github.com/unkn0wn-root/tiercache/kv/redis"
	"github.com/unkn0wn-root/tiercache/kv/sqlite"
	"github.com/unkn0wn-root/tiercache/memory"
	"github.com/unkn0wn-root/tiercache/ttl"
)

const EnvPrefix = "TIERCACHE_"

const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendBigCache = "bigcache"

	MemoryMap       = "map"
	MemoryRistretto = "ristretto"
)

// Config holds all configuration
type Config struct {
	Backend         string        `mapstructure:"backend" env:"BACKEND" validate:"oneof=sqlite redis bigcache"`
	Codec           string        `mapstructure:"codec" env:"CODEC" validate:"omitempty,oneof=json sonic cbor msgpack"`
	MaxPayloadBytes int           `mapstructure:"max_payload_bytes" env:"MAX_PAYLOAD_BYTES" validate:"gte=0"`
	OpTimeout       time.Duration `mapstructure:"op_timeout" env:"OP_TIMEOUT" validate:"gte=0"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl" env:"DEFAULT_TTL" validate:"gt=0"`
	// DefaultRules prepends ttl.DefaultRules to Rules.
	DefaultRules bool `mapstructure:"default_rules" env:"DEFAULT_RULES"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" envPrefix:"SQLITE_"`
	Redis    RedisConfig    `mapstructure:"redis" envPrefix:"REDIS_"`
	BigCache BigCacheConfig `mapstructure:"bigcache" envPrefix:"BIGCACHE_"`
	Memory   MemoryConfig   `mapstructure:"memory" envPrefix:"MEMORY_"`

	Rules []RuleConfig `mapstructure:"rules" env:"-" validate:"dive"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" env:"PATH"`
}

type RedisConfig struct {
	Addrs     []string `mapstructure:"addrs" env:"ADDRS" envSeparator:","`
	Password  string   `mapstructure:"password" env:"PASSWORD"`
	DB        int      `mapstructure:"db" env:"DB" validate:"gte=0"`
	Namespace string   `mapstructure:"namespace" env:"NAMESPACE"`
}

type BigCacheConfig struct {
	LifeWindow         time.Duration `mapstructure:"life_window" env:"LIFE_WINDOW" validate:"gte=0"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb" env:"HARD_MAX_CACHE_SIZE_MB" validate:"gte=0"`
}

type MemoryConfig struct {
	Kind        string `mapstructure:"kind" env:"KIND" validate:"oneof=map ristretto"`
	MaxCost     int64  `mapstructure:"max_cost" env:"MAX_COST" validate:"gte=0"`
	NumCounters int64  `mapstructure:"num_counters" env:"NUM_COUNTERS" validate:"gte=0"`
}

// RuleConfig is one TTL rule, e.g. {match: prefix, pattern: transactions_, ttl: 10m}.
type RuleConfig struct {
	Match   string        `mapstructure:"match" validate:"required,oneof=exact prefix category"`
	Pattern string        `mapstructure:"pattern" validate:"required"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("codec", codec.NameJSON)
	v.SetDefault("op_timeout", 2*time.Second)
	v.SetDefault("default_ttl", ttl.DefaultTTL)
	v.SetDefault("default_rules", true)

	v.SetDefault("sqlite.path", "tiercache.db")
	v.SetDefault("redis.namespace", "tiercache")

	v.SetDefault("memory.kind", MemoryMap)
	v.SetDefault("memory.max_cost", 10_000)
	v.SetDefault("memory.num_counters", 100_000)
}

// Load reads the YAML file at path ("" => defaults only), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return finish(v)
}

// Parse is Load for YAML already in memory.
func Parse(r io.Reader) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("config: sqlite.path is required for the sqlite backend")
		}
	case BackendRedis:
		if len(c.Redis.Addrs) == 0 {
			return errors.New("config: redis.addrs is required for the redis backend")
		}
		if c.Redis.Namespace == "" {
			return errors.New("config: redis.namespace is required for the redis backend")
		}
	}
	if c.Memory.Kind == MemoryRistretto && (c.Memory.MaxCost == 0 || c.Memory.NumCounters == 0) {
		return errors.New("config: memory.max_cost and memory.num_counters are required for ristretto")
	}
	return nil
}

// Policy builds the TTL policy from DefaultTTL and the rule table.
func (c Config) Policy() (*ttl.Policy, error) {
	var rules []ttl.Rule
	if c.DefaultRules {
		rules = ttl.DefaultRules()
	}
	for i, r := range c.Rules {
		m, ok := ttl.ParseMatch(r.Match)
		if !ok {
			return nil, fmt.Errorf("config: rules[%d]: unknown match %q", i, r.Match)
		}
		rules = append(rules, ttl.Rule{Match: m, Pattern: r.Pattern, TTL: r.TTL})
	}
	return ttl.New(c.DefaultTTL, rules...), nil
}

// OpenKV opens the configured persistent tier.
func OpenKV(c Config) (kv.KV, error) {
	switch c.Backend {
	case BackendSQLite:
		s, err := sqlite.Open(c.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    c.Redis.Addrs,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		s, err := redis.New(redis.Config{Client: rdb, Namespace: c.Redis.Namespace, CloseClient: true})
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		return s, nil
	case BackendBigCache:
		s, err := bigcache.New(bigcache.Config{
			LifeWindow:         c.BigCache.LifeWindow,
			HardMaxCacheSizeMB: c.BigCache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}

// MemoryTier builds the configured memory tier.
func (c Config) MemoryTier() (memory.Tier, error) {
	switch c.Memory.Kind {
	case "", MemoryMap:
		return memory.NewMap(), nil
	case MemoryRistretto:
		r, err := memory.NewRistretto(memory.RistrettoConfig{
			NumCounters: c.Memory.NumCounters,
			MaxCost:     c.Memory.MaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("config: unknown memory kind %q", c.Memory.Kind)
	}
}

// Open validates c and returns a Store over the configured tiers.
// log and hooks may be nil.
func Open(c Config, log tiercache.Logger, hooks tiercache.Hooks) (*tiercache.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	mem, err := c.MemoryTier()
	if err != nil {
		return nil, err
	}
	store, err := OpenKV(c)
	if err != nil {
		if cl, ok := mem.(interface{ Close() }); ok {
			cl.Close()
		}
		return nil, err
	}
	s, err := tiercache.New(tiercache.Options{
		KV:        store,
		Memory:    mem,
		Policy:    policy,
		Logger:    log,
		Hooks:     hooks,
		OpTimeout: c.OpTimeout,
	})
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return s, nil
}

// CodecFor returns the configured codec for lists of T, bounded by
// MaxPayloadBytes when set.
func CodecFor[T any](c Config) (codec.Codec[[]T], error) {
	return codec.ByName[[]T](c.Codec, c.MaxPayloadBytes)
}
