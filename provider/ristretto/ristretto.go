package ristretto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/kvcache/provider"
)

type Provider struct {
	c    *rc.Cache
	cost func(key string, value []byte) int64
	// guards writes so SetIfAbsent cannot interleave with Set
	mu sync.Mutex
}

var (
	_ pr.Provider  = (*Provider)(nil)
	_ pr.Inspector = (*Provider)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost weighs an entry against MaxCost. nil => every entry costs 1.
	Cost func(key string, value []byte) int64
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, []byte) int64 { return 1 }
	}
	return &Provider{c: c, cost: cost}, nil
}

func (p *Provider) Get(_ context.Context, key string) (pr.Lookup, error) {
	return p.lookup(key), nil
}

func (p *Provider) GetMany(_ context.Context, keys []string) (map[string]pr.Lookup, error) {
	out := make(map[string]pr.Lookup, len(keys))
	for _, k := range keys {
		out[k] = p.lookup(k)
	}
	return out, nil
}

// ristretto drops lapsed entries on read, so expiry surfaces as a miss.
func (p *Provider) lookup(key string) pr.Lookup {
	v, ok := p.c.Get(key)
	if !ok {
		return pr.Lookup{Status: pr.Miss}
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return pr.Lookup{Status: pr.Miss}
	}
	return pr.Lookup{Status: pr.Hit, Value: b}
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set(key, value, ttl) {
		return pr.ErrRejected
	}
	p.c.Wait()
	return nil
}

func (p *Provider) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rejected := 0
	for k, v := range items {
		if !p.set(k, v, ttl) {
			rejected++
		}
	}
	p.c.Wait()
	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d items", pr.ErrRejected, rejected, len(items))
	}
	return nil
}

func (p *Provider) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, found := p.c.Get(key); found {
		return false, nil
	}
	if !p.set(key, value, ttl) {
		return false, pr.ErrRejected
	}
	p.c.Wait()
	return true, nil
}

func (p *Provider) set(key string, value []byte, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0 // ristretto rejects negative TTLs; 0 means no expiry
	}
	return p.c.SetWithTTL(key, value, p.cost(key, value), ttl)
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	p.c.Del(key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) DelMany(_ context.Context, keys []string) error {
	p.mu.Lock()
	for _, k := range keys {
		p.c.Del(k)
	}
	p.mu.Unlock()
	return nil
}

func (p *Provider) Inspect(_ context.Context, key string) (pr.Entry, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return pr.Entry{}, false, nil
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		return pr.Entry{}, false, nil
	}
	e := pr.Entry{Value: b}
	if rem, ok := p.c.GetTTL(key); ok && rem > 0 {
		e.ExpiresAt = time.Now().Add(rem)
	}
	return e, true, nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
