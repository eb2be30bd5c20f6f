package cacheinfra

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is a persisted query result. Exactly one of Result or ResultDict is
// populated by any single write; a nil slot means "not cached".
type Record struct {
	Key        string    `msgpack:"k"`
	Result     []byte    `msgpack:"r"`
	ResultDict []byte    `msgpack:"d"`
	Created    time.Time `msgpack:"c"`
	Updated    time.Time `msgpack:"u"`
}

// Store is the storage contract every adapter in this package satisfies.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, record *Record) error
	DeleteMulti(ctx context.Context, keys []string) error
	Count(ctx context.Context) (int, error)
}

func stamp(record *Record) {
	now := time.Now().UTC()
	if record.Created.IsZero() {
		record.Created = now
	}
	record.Updated = now
}

func encodeRecord(record *Record) ([]byte, error) {
	return msgpack.Marshal(record)
}

func decodeRecord(data []byte) (*Record, error) {
	var record Record
	if err := msgpack.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func dedupeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
