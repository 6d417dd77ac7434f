package kvcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvcache/internal/util"
	pr "github.com/unkn0wn-root/kvcache/provider"
)

func (cc *cache[K, V]) GetAll(ctx context.Context, keys []K) Result[map[K]Result[V]] {
	const op = "get_all"
	if len(keys) == 0 || !cc.hashable(keys) {
		cc.onIllegal(op)
		return illegalArgument[map[K]Result[V]]()
	}

	// out only ever holds final results; keys bound for the provider wait in bins
	out := make(map[K]Result[V], len(keys))
	bins := make(map[K]string, len(keys))
	order := make([]string, 0, len(keys))
	binSeen := make(map[string]struct{}, len(keys))

	for _, k := range keys {
		if _, dup := out[k]; dup {
			continue
		}
		if _, dup := bins[k]; dup {
			continue
		}
		if util.IsNil(k) {
			cc.onIllegal(op)
			out[k] = illegalArgument[V]()
			continue
		}
		bk, err := cc.encodeKey(k)
		if err != nil {
			cc.onCodec(op, err)
			out[k] = failure[V](err.Error(), err)
			continue
		}
		bins[k] = bk
		if _, seen := binSeen[bk]; !seen {
			binSeen[bk] = struct{}{}
			order = append(order, bk)
		}
	}

	if len(order) == 0 {
		return success(out)
	}
	if len(order) < len(bins) {
		cc.hooks.KeyCollision(op, len(bins), len(order))
	}

	lookups, err := cc.provider.GetMany(ctx, order)
	if err != nil {
		cc.onProvider(op, len(order), err)
		return fromError[map[K]Result[V]](err)
	}

	// decode once per binary key; collided typed keys share the outcome
	decoded := make(map[string]Result[V], len(order))
	for k, bk := range bins {
		r, cached := decoded[bk]
		if !cached {
			l, found := lookups[bk]
			if !found {
				l = pr.Lookup{Status: pr.Miss}
			}
			r = cc.fromLookup(op, l)
			decoded[bk] = r
		}
		out[k] = r
	}
	return success(out)
}

// hashable reports whether every key can index a map. Only interface-typed
// keys can fail.
func (cc *cache[K, V]) hashable(keys []K) bool {
	if !cc.checkHash {
		return true
	}
	for _, k := range keys {
		if !util.Hashable(k) {
			return false
		}
	}
	return true
}

func (cc *cache[K, V]) PutAll(ctx context.Context, entries map[K]V, ttl time.Duration) Outcome {
	const op = "put_all"
	eff, valid := cc.resolveTTL(ttl)
	if len(entries) == 0 || !valid {
		cc.onIllegal(op)
		return illegalArgument[struct{}]()
	}

	// fail fast: nothing is written unless every entry encodes
	items := make(map[string][]byte, len(entries))
	for k, v := range entries {
		if util.IsNil(k) {
			cc.onIllegal(op)
			return illegalArgument[struct{}]()
		}
		bk, err := cc.encodeKey(k)
		if err != nil {
			cc.onCodec(op, err)
			return failure[struct{}](err.Error(), err)
		}
		payload, err := cc.encodeValue(v)
		if err != nil {
			cc.onCodec(op, err)
			return failure[struct{}](err.Error(), err)
		}
		items[bk] = payload
	}
	if len(items) < len(entries) {
		cc.hooks.KeyCollision(op, len(entries), len(items))
		cc.log.Debug("put_all keys collided after encoding", Fields{"typed": len(entries), "binary": len(items)})
	}

	err := cc.provider.SetMany(ctx, items, eff)
	if err != nil {
		cc.onProvider(op, len(items), err)
	}
	return fromWrite(err)
}

func (cc *cache[K, V]) RemoveAll(ctx context.Context, keys []K) Outcome {
	const op = "remove_all"
	if len(keys) == 0 {
		cc.onIllegal(op)
		return illegalArgument[struct{}]()
	}

	bins := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if util.IsNil(k) {
			cc.onIllegal(op)
			return illegalArgument[struct{}]()
		}
		bk, err := cc.encodeKey(k)
		if err != nil {
			cc.onCodec(op, err)
			return failure[struct{}](err.Error(), err)
		}
		if _, dup := seen[bk]; dup {
			continue
		}
		seen[bk] = struct{}{}
		bins = append(bins, bk)
	}

	err := cc.provider.DelMany(ctx, bins)
	if err != nil {
		cc.onProvider(op, len(bins), err)
	}
	return fromWrite(err)
}
