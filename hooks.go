package tiercache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
//
// Every Hooks is also a shape.Observer, so Manager routes normalizer
// diagnostics to the same sink.
type Hooks interface {
	// The persistent tier failed; the operation degraded to a miss or no-op.
	// op ∈ {"put", "read", "read_stamp", "remove", "keys", "clear"}
	StorageError(op, key string, err error)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(key, reason string)

	// A caller stored an empty result; the key was dropped instead.
	EmptyWrite(key string)

	// An element of a payload failed to decode and was skipped.
	ItemSkipped(field string, index int, err error)

	// A payload was only partially usable.
	ShapeMismatch(reason string)

	// A validity check found the entry past its TTL.
	Expired(key string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StorageError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)            {}
func (NopHooks) EmptyWrite(string)                  {}
func (NopHooks) ItemSkipped(string, int, error)     {}
func (NopHooks) ShapeMismatch(string)               {}
func (NopHooks) Expired(string)                     {}
