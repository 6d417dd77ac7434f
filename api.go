package kvcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/kvcache/codec"
	pr "github.com/unkn0wn-root/kvcache/provider"
)

// Cache is the typed, provider-agnostic cache API.
// K is the caller's key type, V the value type. Keys are converted with a
// KeyEncoder[K] and values with a Codec[V]. A ttl of 0 means Options.DefaultTTL.
type Cache[K comparable, V any] interface {
	// Single
	Get(ctx context.Context, key K) Result[V]
	Put(ctx context.Context, key K, value V, ttl time.Duration) Outcome
	PutIfAbsent(ctx context.Context, key K, value V, ttl time.Duration) Outcome
	Remove(ctx context.Context, key K) Outcome

	// Bulk (one provider call each)
	GetAll(ctx context.Context, keys []K) Result[map[K]Result[V]]
	PutAll(ctx context.Context, entries map[K]V, ttl time.Duration) Outcome
	RemoveAll(ctx context.Context, keys []K) Outcome

	// Inspect exposes the raw stored entry when the provider implements
	// provider.Inspector.
	Inspect(ctx context.Context, key K) Result[pr.Entry]

	Close(ctx context.Context) error
}

// Options configure a Cache.
// Only Provider and Codec are required; others have sensible defaults.
type Options[K comparable, V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	KeyEncoder c.KeyEncoder[K] // nil => codec.FormatKey[K]
	Namespace  string          // optional key prefix, e.g. "user", "profile"
	DefaultTTL time.Duration   // 0 => 10m
	Logger     Logger          // nil => NopLogger
	Hooks      Hooks           // nil => NopHooks
}

func New[K comparable, V any](opts Options[K, V]) (Cache[K, V], error) {
	cc, err := newCache[K, V](opts)
	if err != nil {
		return nil, err
	}
	return cc, nil
}
