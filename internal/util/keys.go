package util

import "strings"

// Persisted layout: every logical key owns one value entry and one parallel
// stamp entry (storedAt, unix millis) in the persistent tier.
const (
	ValuePrefix = "tc:v:"
	StampPrefix = "tc:t:"
)

func ValueKey(key string) string { return ValuePrefix + key }
func StampKey(key string) string { return StampPrefix + key }

// LogicalKey strips either storage prefix. ok is false for foreign keys.
func LogicalKey(storageKey string) (string, bool) {
	if k, ok := strings.CutPrefix(storageKey, ValuePrefix); ok {
		return k, true
	}
	if k, ok := strings.CutPrefix(storageKey, StampPrefix); ok {
		return k, true
	}
	return "", false
}

// JoinKey builds "<category>_<subkey>". A category given with its trailing
// separator ("transactions_") is accepted as-is.
func JoinKey(category, subkey string) string {
	base := strings.TrimSuffix(category, "_")
	if subkey == "" {
		return base
	}
	return base + "_" + subkey
}

// CategoryPrefix is the prefix shared by every key of category (besides the
// bare category key itself).
func CategoryPrefix(category string) string {
	return strings.TrimSuffix(category, "_") + "_"
}

// ScopeKey appends an opaque session id so per-user entries stay inside their
// category prefix.
func ScopeKey(key, session string) string {
	if session == "" {
		return key
	}
	return key + "_" + session
}
