package query

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Cached payloads are msgpack. A nil pointer encodes to msgpack nil, which is
// how an absent entity is cached.
//
// Values held in interface fields (map[string]any and the like) decode
// loosely: integers come back as int64 or uint64 and floats as float64.
// Cached kinds pass fresh results through roundTrip so a miss returns the
// same dynamic types a later hit will.

func encodePayload[T any](v T) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decodePayload[T any](data []byte) (T, error) {
	var v T
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	err := dec.Decode(&v)
	return v, err
}

// roundTrip encodes v and decodes it back, returning both the payload and
// the value as a cache hit would see it.
func roundTrip[T any](v T) (T, []byte, error) {
	data, err := encodePayload(v)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	out, err := decodePayload[T](data)
	return out, data, err
}
