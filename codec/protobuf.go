package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf is a Codec for protobuf messages. Construct with NewProtobuf so
// Decode knows which concrete message to allocate.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.User { return &mypb.User{} })
	det bool
}

// NewProtobuf returns a codec using ctor to allocate messages on Decode.
// deterministic enables deterministic map ordering on Encode.
func NewProtobuf[T proto.Message](ctor func() T, deterministic bool) Protobuf[T] {
	return Protobuf[T]{new: ctor, det: deterministic}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: c.det}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errors.New("protobuf codec: missing constructor")
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
