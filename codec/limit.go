package codec

import "fmt"

// LimitCodec wraps another codec to enforce a maximum payload size in both
// directions. If a limit is <= 0, that direction is not checked.
//
// Typical use: protect against oversized values written by buggy callers and
// oversized/malicious inputs coming from a shared remote store.
type LimitCodec[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// MaxEncode bounds the length of payloads produced by Encode.
	MaxEncode int
	// MaxDecode bounds the length of payloads accepted by Decode. Oversized
	// payloads are rejected without invoking Inner.
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxEncode)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
