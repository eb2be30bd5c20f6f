package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// sturdycStore keeps encoded records in an in-process sturdyc client.
// Values are stored encoded so callers never share slices with the store.
type sturdycStore struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycStore validates cfg and builds the in-process record store.
func NewSturdycStore(cfg Config) (*sturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycStore{client: client}, nil
}

// Get returns the record stored at key, or nil when there is none.
func (s *sturdycStore) Get(ctx context.Context, key string) (*Record, error) {
	data, ok := s.client.Get(key)
	if !ok {
		return nil, nil
	}
	return decodeRecord(data)
}

// Put overwrites the record at record.Key.
func (s *sturdycStore) Put(ctx context.Context, record *Record) error {
	stamp(record)
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}
	s.client.Set(record.Key, data)
	return nil
}

// DeleteMulti removes every listed key. Missing keys are ignored.
func (s *sturdycStore) DeleteMulti(ctx context.Context, keys []string) error {
	for _, key := range dedupeKeys(keys) {
		s.client.Delete(key)
	}
	return nil
}

// Count returns the number of stored records.
func (s *sturdycStore) Count(ctx context.Context) (int, error) {
	return s.client.Size(), nil
}

// Keys returns every stored key, in no particular order.
func (s *sturdycStore) Keys() []string {
	return s.client.ScanKeys()
}
