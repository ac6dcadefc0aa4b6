package codec

import (
	"bytes"
	"errors"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
)

// ProtobufList encodes a list of messages as size-delimited records
// (protodelim), preserving order.
type ProtobufList[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Txn { return &mypb.Txn{} })
}

var _ Codec[[]proto.Message] = ProtobufList[proto.Message]{}

func NewProtobufList[T proto.Message](ctor func() T) ProtobufList[T] {
	return ProtobufList[T]{new: ctor}
}

func (c ProtobufList[T]) Encode(items []T) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range items {
		if _, err := protodelim.MarshalTo(&buf, m); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (c ProtobufList[T]) Decode(b []byte) ([]T, error) {
	r := bytes.NewReader(b)
	out := make([]T, 0)
	for {
		m := c.new()
		err := protodelim.UnmarshalFrom(r, m)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}
