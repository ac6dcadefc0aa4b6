// Package shape normalizes backend responses into one canonical envelope.
//
// The backend contract is nominally
//
//	{"code": 200, "msg": "...", "total": 2, "rows": [...]}
//
// but endpoints vary: the list may sit under "data" instead of "rows", a
// single object may arrive where a one-item list was promised, the payload
// field may be missing, numbers may arrive as strings. Normalize reconciles
// all of these into an Envelope[T] and never fails: the worst case is an
// envelope with Code == CodeError, no items and a diagnostic message.
//
// Detection runs an ordered list of pure matchers over the decoded
// document; the first match wins:
//
//	bare top-level array          -> ArrayOfObjects
//	array under primary key       -> ArrayOfObjects
//	array under alternate key     -> WrappedUnderAlternateKey
//	object under primary key      -> SingleObject
//	object under alternate key    -> SingleObject
//	otherwise                     -> Absent (empty items)
//
// The document is built strictly with encoding/json first. When that fails
// (type mismatch in code/msg/total, malformed JSON) the same matchers run
// on a lenient gjson view of the payload.
//
// Items are decoded one by one with a caller-supplied ItemDecoder; elements
// that fail are skipped and reported to the Observer, the rest of the batch
// is kept.
package shape
