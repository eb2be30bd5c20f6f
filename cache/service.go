package cache

import (
	"context"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// KeySerializer turns query params into key text. Equal inputs must render
// identically across calls and processes, and distinct values of one type
// must render differently.
type KeySerializer interface {
	SerializeKey(name string, args ...any) string
	// SerializeValue renders a single value the way SerializeKey renders each arg.
	SerializeValue(v any) string
}

// CachedQueryResult is the persisted record behind every cache key. A record
// holds at most one populated slot: Result for raw query results, ResultDict
// for API projections. A nil slot means the value was never cached.
type CachedQueryResult = cacheinfra.Record

// CacheStore is the storage contract cached queries rely on.
// Writes are last-write-wins and records never expire on their own.
type CacheStore interface {
	// Get returns the record at key or nil when there is none.
	Get(ctx context.Context, key string) (*CachedQueryResult, error)
	// Put creates or overwrites the record at record.Key.
	Put(ctx context.Context, record *CachedQueryResult) error
	// DeleteMulti removes every listed key. Missing keys are not an error.
	DeleteMulti(ctx context.Context, keys []string) error
}

// Counter is implemented by stores that can report how many records they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}
