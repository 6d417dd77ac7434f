package codec

import (
	"errors"

	"github.com/unkn0wn-root/kvcache/internal/util"
)

var errEmptyKey = errors.New("empty key")

// KeyFunc adapts a plain function to KeyEncoder.
type KeyFunc[K any] func(K) (string, error)

func (f KeyFunc[K]) EncodeKey(k K) (string, error) { return f(k) }

// StringKey uses string keys as-is. Empty strings are rejected.
type StringKey struct{}

func (StringKey) EncodeKey(k string) (string, error) {
	if k == "" {
		return "", errEmptyKey
	}
	return k, nil
}

// FormatKey renders scalars and fmt.Stringer values as text and falls back to
// JSON for everything else. It is the default key encoder.
type FormatKey[K any] struct{}

func (FormatKey[K]) EncodeKey(k K) (string, error) {
	s, err := util.ToString(k)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errEmptyKey
	}
	return s, nil
}

// JSONKey encodes keys as JSON text. Map fields are emitted in sorted order,
// so equal keys always produce equal bytes.
type JSONKey[K any] struct{}

func (JSONKey[K]) EncodeKey(k K) (string, error) {
	b, err := jsonAPI.Marshal(k)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
