package types

import (
	"context"
	"time"
)

// SetMode selects the conditional variant of a Set.
type SetMode int8

const (
	SetAlways SetMode = iota
	SetIfAbsent
	SetIfPresent
)

type SetOptions struct {
	// TTL <= 0 means no expiry. Use sparingly on the memory backend,
	// which has no external expiry sweep beyond the janitor.
	TTL         time.Duration
	Mode        SetMode
	ContentType ContentType
}

// Store is the backend contract shared by the in-process and the
// distributed variants. Every operation is fail-open: a connectivity
// failure surfaces as a miss on Get and as (false, error) on writes,
// never as a hard dependency for the caller.
type Store interface {
	// Get returns the stored bytes. A missing, expired or unreadable
	// entry is a miss. Expired entries are deleted lazily on read.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set overwrites unconditionally unless a conditional mode is set.
	// The bool reports whether the value was stored.
	Set(ctx context.Context, key string, value []byte, opts SetOptions) (bool, error)

	// Delete reports whether a removal actually occurred.
	Delete(ctx context.Context, key string) (bool, error)

	// InvalidatePattern removes every key matching the glob and returns
	// the count removed. The scan must not block the keyspace.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)

	// GetMulti returns one result per key, positionally aligned; nil
	// marks a miss. A pipeline-level failure yields all nils.
	GetMulti(ctx context.Context, keys []string) [][]byte

	// SetMulti writes all items in one pipelined round trip. A pipeline
	// failure fails the whole batch; there is no partial success.
	SetMulti(ctx context.Context, items []BatchItem) error

	// IncrBy atomically adds delta to an integer counter key and bounds
	// its lifetime to expiry, so idle aggregates do not leak.
	IncrBy(ctx context.Context, key string, delta int64, expiry time.Duration) (int64, error)

	// CompareAndDelete removes the key only when its current value
	// equals expect. Lock release discipline.
	CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error)

	// KeyCount is a point-in-time snapshot of the namespaced keyspace.
	KeyCount(ctx context.Context) (int64, error)

	// FootprintBytes is an approximation of the namespaced memory use.
	FootprintBytes(ctx context.Context) (int64, error)

	// Clear removes all entries. Test isolation only.
	Clear(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// StoreCreator builds a custom backend from its raw config block.
type StoreCreator func(ctx context.Context, logger Logger, config *CacheConfig) (Store, error)

// CacheEntry is backend-internal state for the memory store. A Set always
// replaces the whole entry; no entry is mutated in place.
type CacheEntry struct {
	Key         string      `json:"key"`
	Value       []byte      `json:"value"`
	ContentType ContentType `json:"content_type"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

type BatchItem struct {
	Key         string
	Value       []byte
	TTL         time.Duration
	ContentType ContentType
}

// CacheStats is the snapshot returned by the stats collector. Counters are
// monotonic for the aggregation window; KeyCount and SizeMB are computed on
// demand, not continuously maintained.
type CacheStats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	Sets     uint64  `json:"sets"`
	Deletes  uint64  `json:"deletes"`
	HitRatio float64 `json:"hit_ratio"`
	KeyCount int64   `json:"key_count"`
	SizeMB   float64 `json:"size_mb"`
}
