package ttl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_ResolutionOrder(t *testing.T) {
	p := New(5*time.Minute,
		Exact("transactions_pinned", time.Hour),
		Prefix("transactions_", 10*time.Minute),
		Prefix("transactions_2024", 20*time.Minute),
		Category("transactions", 30*time.Minute),
		Category("trend", 45*time.Minute),
	)

	tests := []struct {
		key  string
		want time.Duration
	}{
		{"transactions_pinned", time.Hour},
		{"transactions_2024-05", 20 * time.Minute},
		{"transactions_2023-01", 10 * time.Minute},
		{"transactions:raw", 30 * time.Minute},
		{"trend_month", 45 * time.Minute},
		{"unknown", 5 * time.Minute},
		{"", 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.DurationFor(tt.key), "key %q", tt.key)
	}
}

func TestPolicy_NonPositiveDefault(t *testing.T) {
	p := New(0)
	assert.Equal(t, DefaultTTL, p.Default())
	assert.Equal(t, DefaultTTL, p.DurationFor("anything"))
}

func TestPolicy_LaterDuplicateWins(t *testing.T) {
	p := New(time.Minute, Prefix("a_", time.Second), Prefix("a_", 2*time.Second))
	assert.Equal(t, 2*time.Second, p.DurationFor("a_x"))
}

func TestPolicy_MillisFor(t *testing.T) {
	p := New(time.Minute, Exact("k", 1500*time.Millisecond))
	assert.Equal(t, int64(1500), p.MillisFor("k"))
	assert.Equal(t, int64(60000), p.MillisFor("other"))
}

func TestPolicy_DefaultRules(t *testing.T) {
	p := New(DefaultTTL, DefaultRules()...)

	assert.Equal(t, 24*time.Hour, p.DurationFor("categories"))
	assert.Equal(t, 24*time.Hour, p.DurationFor("categories_u42"))
	assert.Equal(t, 30*time.Minute, p.DurationFor("summary_month"))
	assert.Equal(t, time.Hour, p.DurationFor("trend_weekly"))
	assert.Equal(t, 10*time.Minute, p.DurationFor("transactions_2024-05"))
	assert.Equal(t, 2*time.Hour, p.DurationFor("budgets_2024"))
	// Bare category keys resolve like their subkeyed entries.
	assert.Equal(t, 10*time.Minute, p.DurationFor("transactions"))
	assert.Equal(t, 2*time.Hour, p.DurationFor("budgets"))
	assert.Equal(t, 2*time.Hour, p.DurationFor("budget"))
	assert.Less(t, p.DurationFor("summary"), time.Hour)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, "summary", CategoryOf("summary_month"))
	assert.Equal(t, "trend", CategoryOf("trend:weekly"))
	assert.Equal(t, "categories", CategoryOf("categories"))
}

func TestParseMatch(t *testing.T) {
	for _, s := range []string{"exact", "Prefix", " category "} {
		_, ok := ParseMatch(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseMatch("regex")
	assert.False(t, ok)
}
