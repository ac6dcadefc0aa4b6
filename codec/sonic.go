package codec

import "github.com/bytedance/sonic"

// Sonic is a JSON Codec backed by bytedance/sonic, configured to produce the
// same bytes as encoding/json (sorted map keys, escaped HTML). Payloads
// written by JSON are readable by Sonic and vice versa.
// The zero value is ready to use.
type Sonic[V any] struct{}

var sonicStd = sonic.ConfigStd

func (Sonic[V]) Encode(v V) ([]byte, error) { return sonicStd.Marshal(v) }
func (Sonic[V]) Decode(b []byte) (V, error) {
	var v V
	err := sonicStd.Unmarshal(b, &v)
	return v, err
}
