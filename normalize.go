package kvcache

import (
	"errors"

	pr "github.com/unkn0wn-root/kvcache/provider"
)

// fromError classifies a provider error. Sentinels that describe normal
// outcomes keep their own codes; everything else is FAIL with the error text.
func fromError[T any](err error) Result[T] {
	switch {
	case errors.Is(err, pr.ErrNotFound):
		return notFound[T]()
	case errors.Is(err, pr.ErrExpired):
		return expired[T]()
	case errors.Is(err, pr.ErrInvalidKey):
		return Result[T]{code: CodeIllegalArgument, msg: err.Error(), cause: err}
	case errors.Is(err, pr.ErrRejected):
		return failure[T](MsgRejected, err)
	default:
		return failure[T](err.Error(), err)
	}
}

// fromWrite maps the error of a write/remove call.
func fromWrite(err error) Outcome {
	if err == nil {
		return done()
	}
	return fromError[struct{}](err)
}

// fromLookup maps a provider lookup to a typed result, decoding only hits
// that carry a payload.
func fromLookup[V any](l pr.Lookup, decode func([]byte) (V, error)) Result[V] {
	if l.Err != nil {
		return fromError[V](l.Err)
	}
	switch l.Status {
	case pr.Hit:
		var v V
		if l.Value == nil {
			return success(v)
		}
		v, err := decode(l.Value)
		if err != nil {
			return failure[V](err.Error(), err)
		}
		return success(v)
	case pr.Expired:
		return expired[V]()
	default:
		return notFound[V]()
	}
}
