// Package codec holds the pluggable conversions between application types
// and the binary form stored by providers.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// KeyEncoder turns an application key into the binary key seen by providers.
// The result is a string holding raw bytes; it need not be printable.
type KeyEncoder[K any] interface {
	EncodeKey(K) (string, error)
}
