// Package codec turns cached values into bytes for the persistent tier.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Names accepted by ByName.
const (
	NameJSON    = "json"
	NameSonic   = "sonic"
	NameCBOR    = "cbor"
	NameMsgpack = "msgpack"
)

// ByName returns the codec registered under name ("" means json).
// maxDecode > 0 wraps it in a LimitCodec.
func ByName[V any](name string, maxDecode int) (Codec[V], error) {
	var c Codec[V]
	switch name {
	case "", NameJSON:
		c = JSON[V]{}
	case NameSonic:
		c = Sonic[V]{}
	case NameCBOR:
		cb, err := NewCBOR[V](false)
		if err != nil {
			return nil, err
		}
		c = cb
	case NameMsgpack:
		c = Msgpack[V]{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if maxDecode > 0 {
		c = LimitCodec[V]{Inner: c, MaxDecode: maxDecode}
	}
	return c, nil
}
