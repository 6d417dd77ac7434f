// Package memory is an in-process bounded provider backed by otter
// (W-TinyLFU eviction). Entries carry their own expiry, so a lapsed entry that
// is still resident is reported as provider.Expired once and then dropped.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"

	pr "github.com/unkn0wn-root/kvcache/provider"
)

const defaultMaxEntries = 10_000

// entry wraps a cached value with its expiration time (zero = never).
type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type Config struct {
	MaxEntries int // 0 => 10_000
	// MaxRetention, when > 0, evicts every entry this long after its last
	// write regardless of its own TTL. 0 disables the backstop.
	MaxRetention time.Duration
}

type Provider struct {
	c *otter.Cache[string, entry]
	// writes are serialized so that SetIfAbsent is atomic with respect to
	// every other writer; reads never take the lock.
	mu     sync.Mutex
	now    func() time.Time
	closed atomic.Bool
}

var (
	_ pr.Provider  = (*Provider)(nil)
	_ pr.Inspector = (*Provider)(nil)
)

func New(cfg Config) (*Provider, error) {
	if cfg.MaxEntries < 0 || cfg.MaxRetention < 0 {
		return nil, errors.New("memory: invalid config")
	}
	opts := &otter.Options[string, entry]{
		MaximumSize: cfg.MaxEntries,
	}
	if opts.MaximumSize == 0 {
		opts.MaximumSize = defaultMaxEntries
	}
	if cfg.MaxRetention > 0 {
		opts.ExpiryCalculator = otter.ExpiryWriting[string, entry](cfg.MaxRetention)
	}
	c, err := otter.New[string, entry](opts)
	if err != nil {
		return nil, fmt.Errorf("memory: create cache: %w", err)
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) (pr.Lookup, error) {
	if p.closed.Load() {
		return pr.Lookup{}, pr.ErrClosed
	}
	return p.lookup(key), nil
}

func (p *Provider) GetMany(_ context.Context, keys []string) (map[string]pr.Lookup, error) {
	if p.closed.Load() {
		return nil, pr.ErrClosed
	}
	out := make(map[string]pr.Lookup, len(keys))
	for _, k := range keys {
		out[k] = p.lookup(k)
	}
	return out, nil
}

func (p *Provider) lookup(key string) pr.Lookup {
	e, ok := p.c.GetIfPresent(key)
	if !ok {
		return pr.Lookup{Status: pr.Miss}
	}
	if e.expired(p.now()) {
		p.dropExpired(key)
		return pr.Lookup{Status: pr.Expired}
	}
	return pr.Lookup{Status: pr.Hit, Value: e.data}
}

// dropExpired re-checks under the write lock so a concurrent fresh write is
// never removed.
func (p *Provider) dropExpired(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.c.GetIfPresent(key); ok && e.expired(p.now()) {
		p.c.Invalidate(key)
	}
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	p.mu.Lock()
	p.c.Set(key, p.entry(value, ttl))
	p.mu.Unlock()
	return nil
}

func (p *Provider) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	p.mu.Lock()
	for k, v := range items {
		p.c.Set(k, p.entry(v, ttl))
	}
	p.mu.Unlock()
	return nil
}

func (p *Provider) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if p.closed.Load() {
		return false, pr.ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.c.GetIfPresent(key); ok && !e.expired(p.now()) {
		return false, nil
	}
	p.c.Set(key, p.entry(value, ttl))
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	p.mu.Lock()
	p.c.Invalidate(key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) DelMany(_ context.Context, keys []string) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	p.mu.Lock()
	for _, k := range keys {
		p.c.Invalidate(k)
	}
	p.mu.Unlock()
	return nil
}

// Inspect returns the resident entry even if it has lapsed.
func (p *Provider) Inspect(_ context.Context, key string) (pr.Entry, bool, error) {
	if p.closed.Load() {
		return pr.Entry{}, false, pr.ErrClosed
	}
	e, ok := p.c.GetIfPresent(key)
	if !ok {
		return pr.Entry{}, false, nil
	}
	return pr.Entry{Value: e.data, ExpiresAt: e.expiresAt}, true, nil
}

// Close drops every entry. Calls after Close return provider.ErrClosed.
func (p *Provider) Close(_ context.Context) error {
	if p.closed.CompareAndSwap(false, true) {
		p.c.InvalidateAll()
	}
	return nil
}

func (p *Provider) entry(value []byte, ttl time.Duration) entry {
	e := entry{data: bytes.Clone(value)}
	if ttl > 0 {
		e.expiresAt = p.now().Add(ttl)
	}
	return e
}
