package cacheinfra

import (
	"context"
	"errors"

	"github.com/gomodule/redigo/redis"
)

// redisStore keeps encoded records in redis. Records are written without an
// expiry; redis eviction policy is the only thing that drops them.
type redisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisStore creates a record store on top of a redigo pool. Every key is
// namespaced with prefix.
func NewRedisStore(pool *redis.Pool, prefix string) (*redisStore, error) {
	if pool == nil {
		return nil, &ConfigError{Field: "Pool", Message: "cannot be nil"}
	}
	return &redisStore{pool: pool, prefix: prefix}, nil
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

// Get returns the record at key, or nil when the key is unset.
func (s *redisStore) Get(ctx context.Context, key string) (*Record, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	data, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", s.key(key)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Put overwrites the record at record.Key with no expiry.
func (s *redisStore) Put(ctx context.Context, record *Record) error {
	stamp(record)
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "SET", s.key(record.Key), data)
	return err
}

// DeleteMulti removes every listed key in a single DEL.
func (s *redisStore) DeleteMulti(ctx context.Context, keys []string) error {
	keys = dedupeKeys(keys)
	if len(keys) == 0 {
		return nil
	}

	args := make(redis.Args, 0, len(keys))
	for _, k := range keys {
		args = append(args, s.key(k))
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "DEL", args...)
	return err
}

// Count scans the prefix namespace. It is meant for tests and diagnostics.
func (s *redisStore) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	count := 0
	cursor := 0
	for {
		values, err := redis.Values(redis.DoContext(conn, ctx, "SCAN", cursor, "MATCH", s.prefix+"*", "COUNT", 100))
		if err != nil {
			return 0, err
		}
		if len(values) != 2 {
			return 0, errors.New("cacheinfra: unexpected SCAN reply")
		}
		cursor, err = redis.Int(values[0], nil)
		if err != nil {
			return 0, err
		}
		keys, err := redis.Strings(values[1], nil)
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if cursor == 0 {
			return count, nil
		}
	}
}
