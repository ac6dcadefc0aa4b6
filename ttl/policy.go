// Package ttl maps cache keys to retention durations.
//
// Resolution order for a key:
//  1. exact key rule
//  2. longest matching prefix rule
//  3. category rule, where the category is the key up to its first '_' or ':'
//  4. the policy default
//
// A Policy is immutable after New and safe for concurrent use.
package ttl

import (
	"sort"
	"strings"
	"time"
)

// DefaultTTL applies when no rule matches and no default was given.
const DefaultTTL = 15 * time.Minute

type Match int

const (
	MatchExact Match = iota
	MatchPrefix
	MatchCategory
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchCategory:
		return "category"
	default:
		return "unknown"
	}
}

// ParseMatch accepts "exact", "prefix" or "category".
func ParseMatch(s string) (Match, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, true
	case "prefix":
		return MatchPrefix, true
	case "category":
		return MatchCategory, true
	default:
		return 0, false
	}
}

type Rule struct {
	Match   Match
	Pattern string
	TTL     time.Duration
}

func Exact(key string, d time.Duration) Rule { return Rule{MatchExact, key, d} }
func Prefix(prefix string, d time.Duration) Rule { return Rule{MatchPrefix, prefix, d} }
func Category(name string, d time.Duration) Rule { return Rule{MatchCategory, name, d} }

type Policy struct {
	def        time.Duration
	exact      map[string]time.Duration
	prefixes   []Rule // longest first
	categories map[string]time.Duration
}

// New builds a policy. def <= 0 selects DefaultTTL. For duplicate patterns of
// the same match kind the later rule wins.
func New(def time.Duration, rules ...Rule) *Policy {
	if def <= 0 {
		def = DefaultTTL
	}
	p := &Policy{
		def:        def,
		exact:      make(map[string]time.Duration),
		categories: make(map[string]time.Duration),
	}
	byPrefix := make(map[string]time.Duration)
	for _, r := range rules {
		switch r.Match {
		case MatchExact:
			p.exact[r.Pattern] = r.TTL
		case MatchPrefix:
			byPrefix[r.Pattern] = r.TTL
		case MatchCategory:
			p.categories[r.Pattern] = r.TTL
		}
	}
	for pat, d := range byPrefix {
		p.prefixes = append(p.prefixes, Prefix(pat, d))
	}
	sort.Slice(p.prefixes, func(i, j int) bool {
		a, b := p.prefixes[i].Pattern, p.prefixes[j].Pattern
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return p
}

// DurationFor never fails; a key nothing matches gets the default.
func (p *Policy) DurationFor(key string) time.Duration {
	if d, ok := p.exact[key]; ok {
		return d
	}
	for _, r := range p.prefixes {
		if strings.HasPrefix(key, r.Pattern) {
			return r.TTL
		}
	}
	if d, ok := p.categories[CategoryOf(key)]; ok {
		return d
	}
	return p.def
}

// MillisFor is DurationFor in integer milliseconds.
func (p *Policy) MillisFor(key string) int64 {
	return p.DurationFor(key).Milliseconds()
}

func (p *Policy) Default() time.Duration { return p.def }

// CategoryOf returns the key up to its first '_' or ':' (the whole key when
// neither occurs).
func CategoryOf(key string) string {
	if i := strings.IndexAny(key, "_:"); i >= 0 {
		return key[:i]
	}
	return key
}

// DefaultRules is the retention table for the built-in resource categories.
// Reference lists change rarely; balances and transactions go stale fast.
func DefaultRules() []Rule {
	return []Rule{
		Exact("categories", 24*time.Hour),
		Prefix("categories_", 24*time.Hour),
		Category("summary", 30*time.Minute),
		Category("trend", time.Hour),
		Category("transactions", 10*time.Minute),
		Prefix("transactions_", 10*time.Minute),
		Category("budget", 2*time.Hour),
		Category("budgets", 2*time.Hour),
		Prefix("budgets_", 2*time.Hour),
	}
}
