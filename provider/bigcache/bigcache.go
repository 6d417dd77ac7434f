// Package bigcache adapts allegro/bigcache to the provider contract.
//
// bigcache only knows a global LifeWindow, so each value is framed with its own
// absolute expiry (see internal/wire). The frame is stripped before bytes are
// returned. LifeWindow acts as an upper bound on retention.
package bigcache

import (
	"context"
	"errors"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvcache/internal/wire"
	pr "github.com/unkn0wn-root/kvcache/provider"
)

const defaultLifeWindow = 24 * time.Hour

type Provider struct {
	c *bc.BigCache
	// serializes SetIfAbsent's check-then-set against other writers
	mu  sync.Mutex
	now func() time.Time
}

var (
	_ pr.Provider  = (*Provider)(nil)
	_ pr.Inspector = (*Provider)(nil)
)

type Config struct {
	LifeWindow         time.Duration // 0 => 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = defaultLifeWindow
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) (pr.Lookup, error) {
	return p.lookup(key)
}

func (p *Provider) GetMany(_ context.Context, keys []string) (map[string]pr.Lookup, error) {
	out := make(map[string]pr.Lookup, len(keys))
	for _, k := range keys {
		l, err := p.lookup(k)
		if err != nil {
			l = pr.Lookup{Err: err}
		}
		out[k] = l
	}
	return out, nil
}

func (p *Provider) lookup(key string) (pr.Lookup, error) {
	exp, payload, st, err := p.read(key)
	switch {
	case err != nil:
		return pr.Lookup{}, err
	case st == absent:
		return pr.Lookup{Status: pr.Miss}, nil
	case st == corrupt:
		// self-heal
		p.dropStale(key)
		return pr.Lookup{Status: pr.Miss}, nil
	case p.lapsed(exp):
		p.dropStale(key)
		return pr.Lookup{Status: pr.Expired}, nil
	}
	return pr.Lookup{Status: pr.Hit, Value: payload}, nil
}

type frameState uint8

const (
	absent frameState = iota
	present
	corrupt
)

// read returns the unframed entry. It never mutates the store.
func (p *Provider) read(key string) (time.Time, []byte, frameState, error) {
	raw, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return time.Time{}, nil, absent, nil
	}
	if err != nil {
		return time.Time{}, nil, absent, err
	}
	exp, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		return time.Time{}, nil, corrupt, nil
	}
	return exp, payload, present, nil
}

func (p *Provider) lapsed(exp time.Time) bool {
	return !exp.IsZero() && !p.now().Before(exp)
}

// dropStale deletes key if it is still corrupt or lapsed once the write lock
// is held, so a fresh write that raced the caller's read survives.
func (p *Provider) dropStale(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropStaleLocked(key)
}

func (p *Provider) dropStaleLocked(key string) {
	exp, _, st, err := p.read(key)
	if err != nil || st == absent {
		return
	}
	if st == corrupt || p.lapsed(exp) {
		_ = del(p.c, key)
	}
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c.Set(key, p.frame(value, ttl))
}

// SetMany is not atomic: items written before a failure stay written.
func (p *Provider) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for k, v := range items {
		if err := p.c.Set(k, p.frame(v, ttl)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, _, st, err := p.read(key)
	if err != nil {
		return false, err
	}
	// corrupt and lapsed frames are overwritten in place
	if st == present && !p.lapsed(exp) {
		return false, nil
	}
	if err := p.c.Set(key, p.frame(value, ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) frame(value []byte, ttl time.Duration) []byte {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	return wire.EncodeEntry(exp, value)
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return del(p.c, key)
}

func (p *Provider) DelMany(_ context.Context, keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, k := range keys {
		if err := del(p.c, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func del(c *bc.BigCache, key string) error {
	if err := c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Inspect returns the unframed entry, including one that has lapsed but was
// not yet read.
func (p *Provider) Inspect(_ context.Context, key string) (pr.Entry, bool, error) {
	exp, payload, st, err := p.read(key)
	if err != nil {
		return pr.Entry{}, false, err
	}
	if st == corrupt {
		p.dropStale(key)
	}
	if st != present {
		return pr.Entry{}, false, nil
	}
	return pr.Entry{Value: payload, ExpiresAt: exp}, true, nil
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
