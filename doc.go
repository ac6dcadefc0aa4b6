// Package tiercache is a client-side, two-tier cache for backend list
// responses that must keep working when the backend is slow, unreachable or
// inconsistent.
//
// Components:
//   - Store: memory tier (decoded values) in front of a persistent KV
//     (framed payload bytes plus a parallel storedAt stamp per key).
//   - ttl.Policy: per-key freshness, resolved exact key > longest prefix >
//     category > default. Validity is checked on read; nothing is evicted
//     for being old, so expired data stays available for offline display.
//   - Manager[T]: typed view over a Store keyed by category and subkey.
//     It never returns errors; failures become misses plus Hooks events.
//   - shape: normalizes raw payloads into shape.Envelope[T].
//
// Keys:
//
//	<category>                 - category-wide entry (e.g. "categories")
//	<category>_<subkey>        - scoped entry (e.g. "transactions_2024-05")
//	<key>_<session>            - user-scoped categories, see ManagerOptions
//
// Persisted layout inside the KV:
//
//	tc:v:<key>  - framed payload (string)
//	tc:t:<key>  - storedAt, unix millis (long)
//
// Read-through pattern:
//
//	res := mgr.Load(ctx, "transactions", month, fetchMonth, nil)
//	if res.Stale { /* show offline banner */ }
package tiercache
