// Package provider defines the storage abstraction used by kvcache.
//
// Keys are raw binary strings produced by the cache's key encoder; string is
// used only because it is immutable and comparable. Values are opaque payloads.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata visible to the caller, no re-encoding, no mutation). If a store frames
// values internally (e.g., to carry an expiry), the framing MUST be fully removed
// before the bytes are returned.
package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound may be returned by providers that signal misses as errors.
	ErrNotFound = errors.New("provider: entry not found")
	// ErrExpired may be returned by providers that signal lapsed entries as errors.
	ErrExpired = errors.New("provider: entry expired")
	// ErrInvalidKey reports a key the store cannot accept (empty, too long...).
	ErrInvalidKey = errors.New("provider: invalid key")
	// ErrRejected reports a write the store refused under pressure.
	ErrRejected = errors.New("provider: write rejected")
	// ErrClosed is returned by operations on a closed provider.
	ErrClosed = errors.New("provider: closed")
)

// Status is the state of a single key as seen by the store.
type Status uint8

const (
	Miss Status = iota
	Hit
	// Expired means the store still held the entry but it was past its expiry.
	// Stores that drop lapsed entries eagerly report Miss instead.
	Expired
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	default:
		return "miss"
	}
}

// Lookup is the outcome of reading one key.
type Lookup struct {
	Status Status
	Value  []byte // set only when Status == Hit
	// Err is a per-key failure reported by GetMany. When set, Status is ignored.
	Err error
}

// Provider is a minimal byte store with per-entry TTLs.
// Must be safe for concurrent use. A ttl <= 0 means "no expiry".
type Provider interface {
	// Get returns the lookup for key. Misses are not errors.
	// If an IO/remote error happens, return it as err.
	Get(ctx context.Context, key string) (Lookup, error)

	// GetMany performs one logical read over keys. Keys absent from the
	// returned map are treated as misses. A non-nil err means the whole call failed.
	GetMany(ctx context.Context, keys []string) (map[string]Lookup, error)

	// Set stores value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetMany stores all items with the same TTL in one logical write.
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// SetIfAbsent atomically stores value only when no live entry exists.
	// stored reports whether the write happened.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (stored bool, err error)

	// Del removes a key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error

	// DelMany removes keys in one logical call.
	DelMany(ctx context.Context, keys []string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Entry is the raw state of a stored key, exposed for inspection.
type Entry struct {
	Value []byte
	// ExpiresAt is zero when the entry never expires or the store cannot tell.
	ExpiresAt time.Time
}

// Inspector is implemented by providers that can expose raw entries for
// debugging and tests without exposing their concrete type.
type Inspector interface {
	// Inspect returns the raw entry; ok=false when the key is absent.
	Inspect(ctx context.Context, key string) (e Entry, ok bool, err error)
}
