package kvcache

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/kvcache/provider"
)

type spyEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// spyProvider is an in-memory provider that records every call and lets
// tests inject failures and move the clock.
type spyProvider struct {
	mu    sync.Mutex
	m     map[string]spyEntry
	now   time.Time
	calls map[string]int

	err     error            // returned by every call when set
	keyErr  map[string]error // per-key failures, reported inside the Lookup
	lastTTL time.Duration
	lastGet []string
}

var (
	_ pr.Provider  = (*spyProvider)(nil)
	_ pr.Inspector = (*spyProvider)(nil)
)

func newSpy() *spyProvider {
	return &spyProvider{
		m:     make(map[string]spyEntry),
		now:   time.Unix(1_700_000_000, 0),
		calls: make(map[string]int),
	}
}

func (p *spyProvider) count(op string) {
	p.mu.Lock()
	p.calls[op]++
	p.mu.Unlock()
}

func (p *spyProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *spyProvider) advance(d time.Duration) {
	p.mu.Lock()
	p.now = p.now.Add(d)
	p.mu.Unlock()
}

func (p *spyProvider) lookup(key string) pr.Lookup {
	e, ok := p.m[key]
	if !ok {
		return pr.Lookup{Status: pr.Miss}
	}
	if !e.exp.IsZero() && !p.now.Before(e.exp) {
		return pr.Lookup{Status: pr.Expired}
	}
	return pr.Lookup{Status: pr.Hit, Value: e.v}
}

func (p *spyProvider) entry(v []byte, ttl time.Duration) spyEntry {
	p.lastTTL = ttl
	e := spyEntry{v: v}
	if ttl > 0 {
		e.exp = p.now.Add(ttl)
	}
	return e
}

func (p *spyProvider) Get(_ context.Context, key string) (pr.Lookup, error) {
	p.count("get")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return pr.Lookup{}, p.err
	}
	if err := p.keyErr[key]; err != nil {
		return pr.Lookup{Err: err}, nil
	}
	return p.lookup(key), nil
}

func (p *spyProvider) GetMany(_ context.Context, keys []string) (map[string]pr.Lookup, error) {
	p.count("get_many")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastGet = append([]string(nil), keys...)
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]pr.Lookup, len(keys))
	for _, k := range keys {
		if err := p.keyErr[k]; err != nil {
			out[k] = pr.Lookup{Err: err}
			continue
		}
		// misses are left out to exercise the absent-key path
		if l := p.lookup(k); l.Status != pr.Miss {
			out[k] = l
		}
	}
	return out, nil
}

func (p *spyProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.count("set")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.m[key] = p.entry(value, ttl)
	return nil
}

func (p *spyProvider) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	p.count("set_many")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for k, v := range items {
		p.m[k] = p.entry(v, ttl)
	}
	return nil
}

func (p *spyProvider) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.count("set_if_absent")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	if p.lookup(key).Status == pr.Hit {
		return false, nil
	}
	p.m[key] = p.entry(value, ttl)
	return true, nil
}

func (p *spyProvider) Del(_ context.Context, key string) error {
	p.count("del")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	delete(p.m, key)
	return nil
}

func (p *spyProvider) DelMany(_ context.Context, keys []string) error {
	p.count("del_many")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, k := range keys {
		delete(p.m, k)
	}
	return nil
}

func (p *spyProvider) Inspect(_ context.Context, key string) (pr.Entry, bool, error) {
	p.count("inspect")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return pr.Entry{}, false, p.err
	}
	e, ok := p.m[key]
	if !ok {
		return pr.Entry{}, false, nil
	}
	return pr.Entry{Value: e.v, ExpiresAt: e.exp}, true, nil
}

func (p *spyProvider) Close(context.Context) error { return nil }

// opaque hides the Inspector implementation of the wrapped provider.
type opaque struct{ pr.Provider }

// recordHooks counts hook invocations.
type recordHooks struct {
	mu         sync.Mutex
	illegal    int
	codec      []CodecOp
	failures   int
	rejects    int
	collisions int
}

func (h *recordHooks) IllegalArgument(string) {
	h.mu.Lock()
	h.illegal++
	h.mu.Unlock()
}

func (h *recordHooks) CodecFailure(op CodecOp, _ error) {
	h.mu.Lock()
	h.codec = append(h.codec, op)
	h.mu.Unlock()
}

func (h *recordHooks) ProviderFailure(string, int, error) {
	h.mu.Lock()
	h.failures++
	h.mu.Unlock()
}

func (h *recordHooks) ProviderRejected(string, int) {
	h.mu.Lock()
	h.rejects++
	h.mu.Unlock()
}

func (h *recordHooks) KeyCollision(string, int, int) {
	h.mu.Lock()
	h.collisions++
	h.mu.Unlock()
}
