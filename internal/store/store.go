package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// callTimeout bounds every backing-store call; retries belong to callers.
const callTimeout = 2 * time.Second

// Store is the persistence adapter for all session state. Vote bookkeeping
// relies on the set operations being atomic: concurrent toggles on the same
// key must never observe a torn add/remove.
type Store interface {
	// SetAdd adds member to the set at key. Returns true if the member was
	// not already present.
	SetAdd(ctx context.Context, key, member string) (bool, error)
	// SetRemove removes member from the set at key. Returns true if the
	// member was present.
	SetRemove(ctx context.Context, key, member string) (bool, error)
	SetHas(ctx context.Context, key, member string) (bool, error)
	SetCard(ctx context.Context, key string) (int64, error)
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetClear(ctx context.Context, key string) error

	// IncrBy atomically adjusts the counter at key, creating it at delta,
	// and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// Counter reads the counter at key; an absent counter reads as zero.
	Counter(ctx context.Context, key string) (int64, error)
	// IncrWindow increments an expiring counter. The first increment sets
	// the expiry; later increments within the window do not extend it.
	IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error)

	PutValue(ctx context.Context, key string, value []byte) error
	// GetValue returns the blob at key, or ok=false when absent.
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	DeleteValue(ctx context.Context, key string) error

	DeleteKeys(ctx context.Context, keys ...string) error
	// WipePrefix removes every set, counter and value whose key starts with
	// prefix. Session reset depends on this reaching vote-membership sets.
	WipePrefix(ctx context.Context, prefix string) error

	Ping(ctx context.Context) error
	Close()
}
