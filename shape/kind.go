package shape

import "fmt"

// Kind is the wire layout a payload's items were found in.
type Kind uint8

const (
	// Absent: the payload field is missing, null or unusable.
	Absent Kind = iota
	// ArrayOfObjects: an array under the primary key, or a bare top-level array.
	ArrayOfObjects
	// SingleObject: one object where a list was expected.
	SingleObject
	// WrappedUnderAlternateKey: an array under the alternate key.
	WrappedUnderAlternateKey
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case ArrayOfObjects:
		return "array"
	case SingleObject:
		return "object"
	case WrappedUnderAlternateKey:
		return "alternate"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Shape is the result of detection over one payload.
type Shape struct {
	Kind Kind
	// Field is the wrapper field the items came from; empty for a bare
	// top-level array or an absent payload.
	Field string
	// Elements holds the raw JSON of each element, in payload order.
	Elements [][]byte
	// Mismatch describes a present but unusable payload field (a scalar
	// where a list was expected). Empty otherwise.
	Mismatch string
}
