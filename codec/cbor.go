package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec backed by fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// With deterministic=true the encoder uses RFC 8949 Core Deterministic
// options, which gives byte-for-byte stable output for equal values. That
// matters when CBOR is also used as a key encoder (see CBORKey).
// Time values are encoded as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

// CBORKey encodes keys with a deterministic CBOR encoder. Useful for struct
// keys where field order must not affect the binary key.
type CBORKey[K any] struct {
	enc cbor.EncMode
}

func NewCBORKey[K any]() (CBORKey[K], error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBORKey[K]{}, err
	}
	return CBORKey[K]{enc: em}, nil
}

func (c CBORKey[K]) EncodeKey(k K) (string, error) {
	b, err := c.enc.Marshal(k)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
