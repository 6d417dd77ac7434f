package kvcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/kvcache/codec"
	"github.com/unkn0wn-root/kvcache/internal/util"
	pr "github.com/unkn0wn-root/kvcache/provider"
)

type cache[K comparable, V any] struct {
	ns         string
	provider   pr.Provider
	codec      c.Codec[V]
	keys       c.KeyEncoder[K]
	log        Logger
	hooks      Hooks
	defaultTTL time.Duration
	// set when K can carry an unhashable dynamic type (interface keys)
	checkHash bool
}

func newCache[K comparable, V any](opts Options[K, V]) (*cache[K, V], error) {
	if opts.Provider == nil {
		return nil, errors.New("kvcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("kvcache: codec is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("kvcache: negative default ttl %v", opts.DefaultTTL)
	}

	cc := &cache[K, V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
	}
	cc.checkHash = util.KeyMayPanicOnHash[K]()

	// defaults
	cc.keys = coalesce[c.KeyEncoder[K]](opts.KeyEncoder, c.FormatKey[K]{})
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)

	return cc, nil
}

func (cc *cache[K, V]) Close(ctx context.Context) error {
	return cc.provider.Close(ctx)
}

func (cc *cache[K, V]) Get(ctx context.Context, key K) Result[V] {
	const op = "get"
	if util.IsNil(key) {
		cc.onIllegal(op)
		return illegalArgument[V]()
	}
	k, err := cc.encodeKey(key)
	if err != nil {
		cc.onCodec(op, err)
		return failure[V](err.Error(), err)
	}
	l, err := cc.provider.Get(ctx, k)
	if err != nil {
		cc.onProvider(op, 1, err)
		return fromError[V](err)
	}
	return cc.fromLookup(op, l)
}

func (cc *cache[K, V]) Put(ctx context.Context, key K, value V, ttl time.Duration) Outcome {
	const op = "put"
	k, payload, ttl, res, ok := cc.prepareWrite(op, key, value, ttl)
	if !ok {
		return res
	}
	err := cc.provider.Set(ctx, k, payload, ttl)
	if err != nil {
		cc.onProvider(op, 1, err)
	}
	return fromWrite(err)
}

func (cc *cache[K, V]) PutIfAbsent(ctx context.Context, key K, value V, ttl time.Duration) Outcome {
	const op = "put_if_absent"
	k, payload, ttl, res, ok := cc.prepareWrite(op, key, value, ttl)
	if !ok {
		return res
	}
	stored, err := cc.provider.SetIfAbsent(ctx, k, payload, ttl)
	if err != nil {
		cc.onProvider(op, 1, err)
		return fromError[struct{}](err)
	}
	if !stored {
		return exists()
	}
	return done()
}

func (cc *cache[K, V]) Remove(ctx context.Context, key K) Outcome {
	const op = "remove"
	if util.IsNil(key) {
		cc.onIllegal(op)
		return illegalArgument[struct{}]()
	}
	k, err := cc.encodeKey(key)
	if err != nil {
		cc.onCodec(op, err)
		return failure[struct{}](err.Error(), err)
	}
	err = cc.provider.Del(ctx, k)
	if err != nil {
		cc.onProvider(op, 1, err)
	}
	return fromWrite(err)
}

func (cc *cache[K, V]) Inspect(ctx context.Context, key K) Result[pr.Entry] {
	const op = "inspect"
	if util.IsNil(key) {
		cc.onIllegal(op)
		return illegalArgument[pr.Entry]()
	}
	insp, ok := cc.provider.(pr.Inspector)
	if !ok {
		return failure[pr.Entry](MsgNoInspect, nil)
	}
	k, err := cc.encodeKey(key)
	if err != nil {
		cc.onCodec(op, err)
		return failure[pr.Entry](err.Error(), err)
	}
	e, found, err := insp.Inspect(ctx, k)
	if err != nil {
		cc.onProvider(op, 1, err)
		return fromError[pr.Entry](err)
	}
	if !found {
		return notFound[pr.Entry]()
	}
	return success(e)
}

// prepareWrite validates and encodes a single write. When ok is false, res
// holds the result to return and the provider must not be called.
func (cc *cache[K, V]) prepareWrite(op string, key K, value V, ttl time.Duration) (k string, payload []byte, eff time.Duration, res Outcome, ok bool) {
	eff, valid := cc.resolveTTL(ttl)
	if !valid || util.IsNil(key) {
		cc.onIllegal(op)
		return "", nil, 0, illegalArgument[struct{}](), false
	}
	k, err := cc.encodeKey(key)
	if err == nil {
		payload, err = cc.encodeValue(value)
	}
	if err != nil {
		cc.onCodec(op, err)
		return "", nil, 0, failure[struct{}](err.Error(), err), false
	}
	return k, payload, eff, Outcome{}, true
}

func (cc *cache[K, V]) resolveTTL(ttl time.Duration) (time.Duration, bool) {
	if ttl < 0 {
		return 0, false
	}
	return coalesce(ttl, cc.defaultTTL), true
}

func (cc *cache[K, V]) encodeKey(key K) (string, error) {
	var k string
	err := guard(OpEncodeKey, func() (err error) {
		k, err = cc.keys.EncodeKey(key)
		return err
	})
	if err != nil {
		return "", err
	}
	if cc.ns != "" {
		// isolate by namespace
		return cc.ns + ":" + k, nil
	}
	return k, nil
}

func (cc *cache[K, V]) encodeValue(v V) ([]byte, error) {
	var b []byte
	err := guard(OpEncodeValue, func() (err error) {
		b, err = cc.codec.Encode(v)
		return err
	})
	return b, err
}

func (cc *cache[K, V]) decodeValue(b []byte) (V, error) {
	var v V
	err := guard(OpDecodeValue, func() (err error) {
		v, err = cc.codec.Decode(b)
		return err
	})
	return v, err
}

func (cc *cache[K, V]) fromLookup(op string, l pr.Lookup) Result[V] {
	if l.Err != nil {
		cc.onProvider(op, 1, l.Err)
	}
	return fromLookup(l, func(b []byte) (V, error) {
		v, err := cc.decodeValue(b)
		if err != nil {
			cc.onCodec(op, err)
		}
		return v, err
	})
}

func (cc *cache[K, V]) onIllegal(op string) {
	cc.hooks.IllegalArgument(op)
	cc.log.Debug("rejected illegal argument", Fields{"op": op})
}

func (cc *cache[K, V]) onCodec(op string, err error) {
	var ce *CodecError
	if errors.As(err, &ce) {
		cc.hooks.CodecFailure(ce.Op, ce.Err)
	}
	cc.log.Debug("codec failure", Fields{"op": op, "err": err})
}

func (cc *cache[K, V]) onProvider(op string, n int, err error) {
	switch {
	case errors.Is(err, pr.ErrNotFound), errors.Is(err, pr.ErrExpired):
		return
	case errors.Is(err, pr.ErrRejected):
		cc.hooks.ProviderRejected(op, n)
		cc.log.Debug("write rejected by provider (pressure)", Fields{"op": op, "keys": n})
	default:
		cc.hooks.ProviderFailure(op, n, err)
		cc.log.Warn("provider failure", Fields{"op": op, "keys": n, "err": err})
	}
}

// guard runs a codec call, turning errors and panics into *CodecError.
func guard(op CodecOp, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CodecError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e := fn(); e != nil {
		return &CodecError{Op: op, Err: e}
	}
	return nil
}
