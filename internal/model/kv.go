package model

import (
	"context"
	"time"
)

// TTL sentinel values matching the remote store's TTL command contract.
// Callers branch on these, so both implementations must preserve them.
const (
	// TTLNone means the key exists but has no expiry set.
	TTLNone = time.Duration(-1) * time.Second
	// TTLMissing means the key does not exist.
	TTLMissing = time.Duration(-2) * time.Second
)

// KV defines the key-value store operations used by the rate-limit and
// quota engines. All operations are safe for concurrent use. Incr is the
// only operation whose correctness depends on true atomicity: two
// concurrent increments must both be reflected.
type KV interface {
	// Get returns the value for key, or ok=false if the key is absent
	// or its TTL has elapsed.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any existing value and TTL.
	// A zero ttl stores the key without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes key and reports how many keys were removed (0 or 1).
	Del(ctx context.Context, key string) (int, error)

	// Incr atomically increments the integer value at key, initializing
	// it to 1 if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on an existing key. Returns false if the key
	// does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// TTL returns the remaining time to live of key, TTLNone when the key
	// exists without expiry, or TTLMissing when the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Remote reports whether this store is backed by the remote service.
	// The quota engine refuses to enforce against a process-local store
	// in production.
	Remote() bool
}
