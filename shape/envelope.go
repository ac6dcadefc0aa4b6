package shape

const (
	// CodeOK is the backend's success code.
	CodeOK = 200
	// CodeError marks an envelope that could not be read from the payload,
	// or a fetch that failed before any payload arrived.
	CodeError = -1
)

// Envelope is the canonical result shape. Items is never nil. Total comes
// from the payload when present (advisory, may disagree with len(Items)),
// otherwise it is len(Items).
//
// Marshaling an Envelope produces a canonical payload; normalizing that
// payload again yields the same items in the same order.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Total   int    `json:"total"`
	Items   []T    `json:"rows"`

	// Shape is the wire layout the items were extracted from.
	Shape Kind `json:"-"`
	// Skipped counts elements dropped because they failed to decode.
	Skipped int `json:"-"`
	// Recovered is set when the payload was not valid JSON and Items came
	// from the lenient pass. Such envelopes may be truncated.
	Recovered bool `json:"-"`
}

func (e Envelope[T]) OK() bool { return e.Code == CodeOK }

// ErrorEnvelope is the envelope for payloads nothing could be read from.
func ErrorEnvelope[T any](msg string) Envelope[T] {
	return Envelope[T]{Code: CodeError, Message: msg, Items: make([]T, 0)}
}
