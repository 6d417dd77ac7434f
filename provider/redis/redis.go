package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/kvcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ pr.Provider  = (*Redis)(nil)
	_ pr.Inspector = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Redis drops lapsed keys itself, so expiry is always reported as a miss.
func (p *Redis) Get(ctx context.Context, key string) (pr.Lookup, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return pr.Lookup{Status: pr.Miss}, nil
	}
	if err != nil {
		return pr.Lookup{}, err // transport/server error
	}
	return pr.Lookup{Status: pr.Hit, Value: b}, nil
}

// GetMany pipelines one GET per key rather than MGET so that cluster clients can
// route keys across slots. Failures are reported per key; the call as a whole
// fails only when no command succeeded.
func (p *Redis) GetMany(ctx context.Context, keys []string) (map[string]pr.Lookup, error) {
	pipe := p.rdb.Pipeline()
	cmds := make([]*goredis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, k)
	}
	// per-command errors are inspected below
	_, execErr := pipe.Exec(ctx)

	out := make(map[string]pr.Lookup, len(keys))
	failed := 0
	for i, cmd := range cmds {
		b, err := cmd.Bytes()
		switch {
		case err == nil:
			out[keys[i]] = pr.Lookup{Status: pr.Hit, Value: b}
		case errors.Is(err, goredis.Nil):
			out[keys[i]] = pr.Lookup{Status: pr.Miss}
		default:
			failed++
			out[keys[i]] = pr.Lookup{Err: err}
		}
	}
	if len(keys) > 0 && failed == len(keys) {
		if execErr != nil && !errors.Is(execErr, goredis.Nil) {
			return nil, execErr
		}
		return nil, cmds[0].Err()
	}
	return out, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, value, expiry(ttl)).Err()
}

// SetMany pipelines one SET per item. Redis does not roll back on partial
// failure; the first command error is returned.
func (p *Redis) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	exp := expiry(ttl)
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range items {
			pipe.Set(ctx, k, v, exp)
		}
		return nil
	})
	return err
}

func (p *Redis) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, key, value, expiry(ttl)).Result()
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *Redis) DelMany(ctx context.Context, keys []string) error {
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, k := range keys {
			pipe.Del(ctx, k)
		}
		return nil
	})
	return err
}

// Inspect reads the value and its remaining TTL in one round-trip.
func (p *Redis) Inspect(ctx context.Context, key string) (pr.Entry, bool, error) {
	var (
		get *goredis.StringCmd
		ttl *goredis.DurationCmd
	)
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return pr.Entry{}, false, err
	}
	b, err := get.Bytes()
	if errors.Is(err, goredis.Nil) {
		return pr.Entry{}, false, nil
	}
	if err != nil {
		return pr.Entry{}, false, err
	}
	e := pr.Entry{Value: b}
	// PTTL replies -1 (no expiry) and -2 (missing) as raw negative durations
	if rem := ttl.Val(); rem > 0 {
		e.ExpiresAt = time.Now().Add(rem)
	}
	return e, true, nil
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// non-positive TTLs mean "no expiry" per provider contract
func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
