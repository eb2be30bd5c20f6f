// Package config loads process configuration from a file and QUERYCACHE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/notify"
	"github.com/goliatone/go-query-cache/store"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// QUERYCACHE_CACHE_BACKEND.
const EnvPrefix = "QUERYCACHE"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Store StoreConfig `mapstructure:"store"`
	Cache CacheConfig `mapstructure:"cache"`
	GCM   GCMConfig   `mapstructure:"gcm"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StoreConfig selects the SQL database entities are read from.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig selects where cached query results live.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	// WritesEnabled is the default for kinds built by the container.
	WritesEnabled bool `mapstructure:"writes_enabled"`

	// memory
	Capacity           int `mapstructure:"capacity"`
	NumShards          int `mapstructure:"num_shards"`
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// redis
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisPrefix  string `mapstructure:"redis_prefix"`
	RedisMaxIdle int    `mapstructure:"redis_max_idle"`
}

type GCMConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Default returns a config that needs no external services: an in-process
// cache over an in-memory sqlite store, with notifications disabled. The
// in-process cache is bounded by Capacity and evicts once full; use the redis
// or sql backend when records must live until DeleteCacheMulti removes them.
func Default() Config {
	mem := cache.DefaultConfig()
	return Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			DSN:    "file::memory:?cache=shared",
		},
		Cache: CacheConfig{
			Backend:            BackendMemory,
			WritesEnabled:      true,
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			EvictionPercentage: mem.EvictionPercentage,
			RedisPrefix:        "querycache:",
			RedisMaxIdle:       8,
		},
		GCM: GCMConfig{
			Endpoint: notify.DefaultGCMEndpoint,
			Timeout:  10 * time.Second,
		},
	}
}

// Load reads path, when given, on top of Default and applies environment
// overrides. The result is validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides are seen by
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.writes_enabled", d.Cache.WritesEnabled)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_prefix", d.Cache.RedisPrefix)
	v.SetDefault("cache.redis_max_idle", d.Cache.RedisMaxIdle)

	v.SetDefault("gcm.enabled", d.GCM.Enabled)
	v.SetDefault("gcm.endpoint", d.GCM.Endpoint)
	v.SetDefault("gcm.api_key", d.GCM.APIKey)
	v.SetDefault("gcm.timeout", d.GCM.Timeout)
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Log),
		validation.Field(&c.Store),
		validation.Field(&c.Cache),
		validation.Field(&c.GCM),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

func (c CacheConfig) Validate() error {
	memory := c.Backend == BackendMemory
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis, BackendSQL)),
		validation.Field(&c.Capacity, validation.When(memory, validation.Required, validation.Min(1))),
		validation.Field(&c.NumShards, validation.When(memory, validation.Required, validation.Min(1))),
		validation.Field(&c.EvictionPercentage, validation.Min(0), validation.Max(100)),
		validation.Field(&c.RedisAddr, validation.When(c.Backend == BackendRedis, validation.Required)),
		validation.Field(&c.RedisMaxIdle, validation.Min(0)),
	)
}

func (c GCMConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Endpoint, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Memory returns the in-process store options, starting from
// cache.DefaultConfig.
func (c CacheConfig) Memory() cache.Config {
	mem := cache.DefaultConfig()
	mem.Capacity = c.Capacity
	mem.NumShards = c.NumShards
	mem.EvictionPercentage = c.EvictionPercentage
	return mem
}

// Notify returns the transport options.
func (c GCMConfig) Notify() notify.GCMConfig {
	return notify.GCMConfig{Endpoint: c.Endpoint, APIKey: c.APIKey, Timeout: c.Timeout}
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var errs validation.Errors
	return errors.As(err, &errs)
}
