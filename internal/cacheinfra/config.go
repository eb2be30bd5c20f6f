package cacheinfra

import (
	"fmt"
	"time"

	"github.com/viccon/sturdyc"
)

// Immortal is the TTL of in-process records. Query results leave the store
// through DeleteMulti or capacity eviction, never through expiry.
const Immortal = 100 * 365 * 24 * time.Hour

// Config sizes the sturdyc client behind the in-process store.
type Config struct {
	// Capacity is the record count at which sturdyc starts evicting.
	Capacity int
	// NumShards splits the keyspace for concurrent access.
	NumShards int
	// TTL defaults to Immortal.
	TTL time.Duration
	// EvictionPercentage is the share of a full shard dropped per eviction.
	EvictionPercentage int
	// EvictionInterval, when set, replaces sturdyc's sweep interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns the in-process store defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                Immortal,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions returns the options not passed positionally to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	if c.EvictionInterval <= 0 {
		return nil
	}
	return []sturdyc.Option{sturdyc.WithEvictionInterval(c.EvictionInterval)}
}

// Validate returns a *ConfigError for the first invalid field.
func (c Config) Validate() error {
	checks := []struct {
		field string
		ok    bool
		msg   string
	}{
		{"Capacity", c.Capacity > 0, "must be greater than 0"},
		{"NumShards", c.NumShards > 0, "must be greater than 0"},
		{"TTL", c.TTL > 0, "must be greater than 0"},
		{"EvictionPercentage", c.EvictionPercentage >= 1 && c.EvictionPercentage <= 100, "must be between 1 and 100"},
		{"EvictionInterval", c.EvictionInterval >= 0, "must be non-negative"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return &ConfigError{Field: chk.field, Message: chk.msg}
		}
	}
	return nil
}

// ConfigError reports an invalid store setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cacheinfra: %s %s", e.Field, e.Message)
}
