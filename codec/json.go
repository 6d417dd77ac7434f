package codec

import jsoniter "github.com/json-iterator/go"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON is a Codec backed by json-iterator in standard-library compatible mode.
// The zero value is ready to use.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return jsonAPI.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := jsonAPI.Unmarshal(b, &v)
	return v, err
}
