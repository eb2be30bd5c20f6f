package cache

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
	"github.com/uptrace/bun"
)

// Immortal is the lifetime given to every in-process record.
const Immortal = cacheinfra.Immortal

// Config sizes the in-process store. Records never expire; they leave the
// store only through DeleteMulti or eviction once Capacity is reached.
type Config struct {
	// Capacity is the record count that triggers eviction.
	Capacity int
	// NumShards splits the store for concurrent access.
	NumShards int
	// EvictionPercentage is the share of records dropped on eviction, 1-100.
	EvictionPercentage int
	// EvictionInterval overrides the sweep interval. Zero keeps the default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the in-process store defaults.
func DefaultConfig() Config {
	d := cacheinfra.DefaultConfig()
	return Config{
		Capacity:           d.Capacity,
		NumShards:          d.NumShards,
		EvictionPercentage: d.EvictionPercentage,
		EvictionInterval:   d.EvictionInterval,
	}
}

// Validate reports the first out of range field.
func (c Config) Validate() error {
	return c.sturdyc().Validate()
}

func (c Config) sturdyc() cacheinfra.Config {
	cfg := cacheinfra.DefaultConfig()
	cfg.Capacity = c.Capacity
	cfg.NumShards = c.NumShards
	cfg.EvictionPercentage = c.EvictionPercentage
	cfg.EvictionInterval = c.EvictionInterval
	return cfg
}

// NewCacheStore returns the in-process sturdyc store. Records never expire,
// but once Capacity is reached sturdyc evicts EvictionPercentage of a shard
// to make room. NewRedisCacheStore and NewSQLCacheStore never evict.
func NewCacheStore(cfg Config) (CacheStore, error) {
	s, err := cacheinfra.NewSturdycStore(cfg.sturdyc())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewRedisCacheStore returns a store on a redigo pool. Keys are written
// under prefix.
func NewRedisCacheStore(pool *redis.Pool, prefix string) (CacheStore, error) {
	s, err := cacheinfra.NewRedisStore(pool, prefix)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLCacheStore returns a store on the cached_query_results table.
func NewSQLCacheStore(db bun.IDB) (CacheStore, error) {
	s, err := cacheinfra.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSQLCacheTable creates the table NewSQLCacheStore writes to.
func CreateSQLCacheTable(ctx context.Context, db bun.IDB) error {
	return cacheinfra.CreateSQLTable(ctx, db)
}
