// Package util holds small helpers shared by the cache and its codecs.
package util

import (
	"fmt"
	"reflect"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ToString renders scalars and fmt.Stringer values as text. Other values are
// rendered as JSON.
func ToString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		bs, err := jsonAPI.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(bs), nil
	}
}

// IsNil reports whether v is a nil interface or a nil pointer, map, slice,
// chan or func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// MayPanicOnHash reports whether values of t can hold an uncomparable dynamic
// type, i.e. t is or contains an interface. Using such a value as a map key
// panics when the dynamic type is a slice, map or func.
func MayPanicOnHash(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return MayPanicOnHash(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if MayPanicOnHash(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// Hashable reports whether v can be used as a map key without panicking.
func Hashable(v any) bool {
	if v == nil {
		return true
	}
	return hashable(reflect.ValueOf(v))
}

func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Array:
		if !v.Type().Comparable() {
			return false
		}
		for i := 0; i < v.Len(); i++ {
			if !hashable(v.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		if !v.Type().Comparable() {
			return false
		}
		for i := 0; i < v.NumField(); i++ {
			if !hashable(v.Field(i)) {
				return false
			}
		}
		return true
	default:
		return v.Type().Comparable()
	}
}

// KeyMayPanicOnHash is MayPanicOnHash for the type parameter K.
func KeyMayPanicOnHash[K any]() bool { return MayPanicOnHash(reflect.TypeFor[K]()) }
