package shape

// Observer receives diagnostics from Normalize. Implementations must be
// cheap and non-blocking; they run on the caller's goroutine.
type Observer interface {
	// ItemSkipped reports an element that failed to decode and was dropped.
	ItemSkipped(field string, index int, err error)
	// ShapeMismatch reports a payload that was only partially usable.
	ShapeMismatch(reason string)
}

type NopObserver struct{}

func (NopObserver) ItemSkipped(string, int, error) {}
func (NopObserver) ShapeMismatch(string)           {}
