package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/notify"
	"github.com/goliatone/go-query-cache/query"
	"github.com/goliatone/go-query-cache/store"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrNotificationsDisabled is returned by NewDispatcher when no transport is
// configured.
var ErrNotificationsDisabled = errors.New("di: notifications are disabled")

// Container owns the process-wide collaborators of cached queries: the
// logger, the SQL database, the cache store and the push transport. It
// provides factory functions that wire them into stores and cached kinds.
type Container struct {
	config        config.Config
	logger        *zap.Logger
	meter         metric.MeterProvider
	db            *bun.DB
	redisPool     *redis.Pool
	cacheStore    cache.CacheStore
	keySerializer cache.KeySerializer
	transport     notify.Transport

	closers []func() error
}

// Option overrides a collaborator the container would otherwise build.
// Collaborators passed in are not closed by Close.
type Option func(*Container)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Container) { c.meter = mp }
}

func WithDB(db *bun.DB) Option {
	return func(c *Container) { c.db = db }
}

func WithRedisPool(pool *redis.Pool) Option {
	return func(c *Container) { c.redisPool = pool }
}

func WithTransport(t notify.Transport) Option {
	return func(c *Container) { c.transport = t }
}

// NewContainer validates cfg and builds every collaborator it describes.
// On error, anything already opened is closed.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults(ctx context.Context) (*Container, error) {
	return NewContainer(ctx, config.Default())
}

func (c *Container) init(ctx context.Context) error {
	if c.logger == nil {
		logger, err := newLogger(c.config.Log)
		if err != nil {
			return err
		}
		c.logger = logger
		c.closers = append(c.closers, func() error {
			_ = logger.Sync()
			return nil
		})
	}
	if c.meter == nil {
		c.meter = otel.GetMeterProvider()
	}

	if c.db == nil {
		db, err := store.OpenDB(c.config.Store.Driver, c.config.Store.DSN)
		if err != nil {
			return err
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	cs, err := c.newCacheStore(ctx)
	if err != nil {
		return err
	}
	c.cacheStore = cs

	if c.transport == nil && c.config.GCM.Enabled {
		t, err := notify.NewGCMTransport(c.config.GCM.Notify(), c.logger.Named("gcm"))
		if err != nil {
			return err
		}
		c.transport = t
	}

	c.logger.Info("container ready",
		zap.String("cache_backend", c.config.Cache.Backend),
		zap.String("store_driver", c.config.Store.Driver),
		zap.Bool("notifications", c.transport != nil))
	return nil
}

func (c *Container) newCacheStore(ctx context.Context) (cache.CacheStore, error) {
	switch c.config.Cache.Backend {
	case config.BackendMemory:
		return cache.NewCacheStore(c.config.Cache.Memory())
	case config.BackendRedis:
		if c.redisPool == nil {
			c.redisPool = newRedisPool(c.config.Cache)
			c.closers = append(c.closers, c.redisPool.Close)
		}
		return cache.NewRedisCacheStore(c.redisPool, c.config.Cache.RedisPrefix)
	case config.BackendSQL:
		if err := cache.CreateSQLCacheTable(ctx, c.db); err != nil {
			return nil, err
		}
		return cache.NewSQLCacheStore(c.db)
	default:
		return nil, fmt.Errorf("di: unknown cache backend %q", c.config.Cache.Backend)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func newRedisPool(cfg config.CacheConfig) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     cfg.RedisMaxIdle,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", cfg.RedisAddr)
		},
		TestOnBorrow: func(conn redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := conn.Do("PING")
			return err
		},
	}
}

// Close releases what the container opened itself, in reverse order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) DB() *bun.DB {
	return c.db
}

func (c *Container) CacheStore() cache.CacheStore {
	return c.cacheStore
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Transport is nil when notifications are disabled.
func (c *Container) Transport() notify.Transport {
	return c.transport
}

// QueryOptions returns the options kinds built against this container share.
func (c *Container) QueryOptions() []query.Option {
	return []query.Option{
		query.WithLogger(c.logger.Named("query")),
		query.WithMeterProvider(c.meter),
		query.WithKeySerializer(c.keySerializer),
	}
}

// NewDispatcher returns a dispatcher on the container's transport.
func (c *Container) NewDispatcher(resolver notify.SubscriptionResolver) (*notify.Dispatcher, error) {
	if c.transport == nil {
		return nil, ErrNotificationsDisabled
	}
	return notify.NewDispatcher(c.transport, resolver, c.logger.Named("notify"))
}

// NewBunStore creates a store for model M on the container's database.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewBunStore(container, "id", func(t *Team) string { return t.Key })
func NewBunStore[M any](c *Container, idColumn string, idOf func(*M) string) *store.BunStore[M] {
	return store.NewBunStore[M](c.db, idColumn, idOf)
}

// NewCachedKind wraps kind with the container's cache store. Writes follow
// the configured default.
func NewCachedKind[T, D any](c *Container, kind *query.Kind[T, D], keyFormat string, cacheVersion, queryVersion int) (*query.CachedKind[T, D], error) {
	return query.NewCachedKind(kind, c.cacheStore, query.CacheConfig{
		KeyFormat:     keyFormat,
		CacheVersion:  cacheVersion,
		QueryVersion:  queryVersion,
		WritesEnabled: c.config.Cache.WritesEnabled,
	}, c.QueryOptions()...)
}
