package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/convert"
	"github.com/goliatone/go-query-cache/future"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// ErrNilCacheStore is returned by NewCachedKind when no store is given.
var ErrNilCacheStore = errors.New("query: nil cache store")

// CacheConfig is the static cache configuration of a kind.
type CacheConfig struct {
	// KeyFormat is the key template, e.g. "team_list_{page}". When empty the
	// key is the snake_case kind name followed by every param.
	KeyFormat string
	// CacheVersion is bumped when the payload encoding changes.
	CacheVersion int
	// QueryVersion is bumped when the query's semantics change.
	QueryVersion int
	// WritesEnabled makes misses write their result back to the store.
	// Reads always go through the cache.
	WritesEnabled bool
}

// CachedKind is a Kind whose results are kept in a CacheStore. Raw results
// and each API projection live under separate keys.
type CachedKind[T, D any] struct {
	kind       *Kind[T, D]
	store      cache.CacheStore
	cfg        CacheConfig
	template   *cache.KeyTemplate
	serializer cache.KeySerializer
	prefix     string
	logger     *zap.Logger
	metrics    *cacheMetrics
}

// NewCachedKind wraps kind with a cache. Options given here override the
// ones kind was built with.
func NewCachedKind[T, D any](kind *Kind[T, D], store cache.CacheStore, cfg CacheConfig, opts ...Option) (*CachedKind[T, D], error) {
	if kind == nil {
		return nil, errors.New("query: nil kind")
	}
	if store == nil {
		return nil, ErrNilCacheStore
	}
	if cfg.CacheVersion < 0 || cfg.QueryVersion < 0 {
		return nil, fmt.Errorf("query: %s: cache and query versions must be non-negative", kind.name)
	}

	var tmpl *cache.KeyTemplate
	if cfg.KeyFormat != "" {
		t, err := cache.ParseKeyTemplate(cfg.KeyFormat)
		if err != nil {
			return nil, fmt.Errorf("query: %s: %w", kind.name, err)
		}
		tmpl = t
	}

	o := kind.opts.apply(opts)
	return &CachedKind[T, D]{
		kind:       kind,
		store:      store,
		cfg:        cfg,
		template:   tmpl,
		serializer: o.serializer,
		prefix:     toSnake(kind.name),
		logger:     o.logger.With(zap.String("kind", kind.name)),
		metrics:    newCacheMetrics(o.meter, kind.name),
	}, nil
}

// Kind returns the underlying uncached kind.
func (c *CachedKind[T, D]) Kind() *Kind[T, D] {
	return c.kind
}

// Config returns the cache configuration.
func (c *CachedKind[T, D]) Config() CacheConfig {
	return c.cfg
}

// Stats returns a snapshot of the kind's cache counters.
func (c *CachedKind[T, D]) Stats() Stats {
	return c.metrics.snapshot()
}

// CacheKey derives the raw-result key for params. Equal params always give
// equal keys; distinct values of the same type, and nil versus non-nil, give
// distinct keys.
func (c *CachedKind[T, D]) CacheKey(params Params) (string, error) {
	var base string
	if c.template != nil {
		rendered, err := c.template.Render(c.serializer, params)
		if err != nil {
			return "", err
		}
		base = rendered
	} else {
		base = cache.DefaultKey(c.serializer, c.prefix, params)
	}
	return cache.FoldKey(fmt.Sprintf("%s:%d:%d", base, c.cfg.CacheVersion, c.cfg.QueryVersion)), nil
}

// DictCacheKey derives the key of the version projection stored next to
// the raw key. The converter subversion is part of the key.
func (c *CachedKind[T, D]) DictCacheKey(rawKey string, version convert.APIMajorVersion) (string, error) {
	sub, err := c.kind.checkVersion(version)
	if err != nil {
		return "", err
	}
	return cache.FoldKey(fmt.Sprintf("%s~dictv%d.%d", rawKey, int(version), sub)), nil
}

// DeleteCacheMulti removes exactly the listed keys in one store call. Raw
// and dict keys are independent, so callers clearing both pass both.
// Missing keys are ignored.
func (c *CachedKind[T, D]) DeleteCacheMulti(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.DeleteMulti(ctx, keys); err != nil {
		return err
	}
	c.metrics.recordInvalidation(ctx, int64(len(keys)))
	c.logger.Debug("cache invalidated", zap.Strings("keys", keys))
	return nil
}

// New binds params to a cached query instance. It fails when the key
// template references a param that is not bound.
func (c *CachedKind[T, D]) New(params Params) (*CachedQuery[T, D], error) {
	bound := params.clone()
	key, err := c.CacheKey(bound)
	if err != nil {
		return nil, err
	}
	return &CachedQuery[T, D]{
		kind:   c,
		params: bound,
		key:    key,
		dicts:  newDictFutures[D](),
	}, nil
}

// MustNew is New that panics on error.
func (c *CachedKind[T, D]) MustNew(params Params) *CachedQuery[T, D] {
	q, err := c.New(params)
	if err != nil {
		panic(err)
	}
	return q
}

// sourced is a raw result plus whether it came from the cache. Fresh results
// carry their encoded payload for the write-back.
type sourced[T any] struct {
	value     T
	fromCache bool
	payload   []byte
}

// CachedQuery is one cached query instance.
//
// Fetch reads the raw slot and, on a miss, runs the query once and writes the
// result back when writes are enabled. FetchDict reads the version's dict
// slot; on a miss it projects the raw result (cached or freshly fetched) and
// writes only the dict slot. Cached values are returned as-is until
// invalidated with DeleteCacheMulti.
type CachedQuery[T, D any] struct {
	kind   *CachedKind[T, D]
	params Params
	key    string

	mu     sync.Mutex
	source *future.Future[sourced[T]]
	result *future.Future[T]
	dicts  *xsync.MapOf[convert.APIMajorVersion, *future.Future[D]]
}

var _ Prefetcher = (*CachedQuery[any, any])(nil)

// Params returns a copy of the bound params.
func (q *CachedQuery[T, D]) Params() Params {
	return q.params.clone()
}

// CacheKey is the key of the raw-result slot.
func (q *CachedQuery[T, D]) CacheKey() string {
	return q.key
}

// DictCacheKey is the key of the version projection slot.
func (q *CachedQuery[T, D]) DictCacheKey(version convert.APIMajorVersion) (string, error) {
	return q.kind.DictCacheKey(q.key, version)
}

// sourceAsync reads the raw slot without writing it; on a miss it runs the
// query. It is shared by the raw and dict paths so the query runs at most
// once per instance.
func (q *CachedQuery[T, D]) sourceAsync(ctx context.Context) *future.Future[sourced[T]] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.source == nil {
		q.source = future.Go(ctx, func(ctx context.Context) (sourced[T], error) {
			return q.loadRaw(ctx)
		})
	}
	return q.source
}

func (q *CachedQuery[T, D]) loadRaw(ctx context.Context) (sourced[T], error) {
	c := q.kind
	rec, err := c.store.Get(ctx, q.key)
	if err != nil {
		return sourced[T]{}, err
	}

	if rec != nil && rec.Result != nil {
		v, err := decodePayload[T](rec.Result)
		if err == nil {
			c.metrics.recordHit(ctx, slotRaw)
			c.logger.Debug("cache hit", zap.String("key", q.key), zap.String("slot", slotRaw))
			return sourced[T]{value: c.kind.shape.normalize(v), fromCache: true}, nil
		}
		c.logger.Warn("discarding undecodable cached result",
			zap.String("key", q.key), zap.String("slot", slotRaw), zap.Error(err))
	}

	c.metrics.recordMiss(ctx, slotRaw)
	c.logger.Debug("cache miss", zap.String("key", q.key), zap.String("slot", slotRaw))

	v, err := c.kind.run(ctx, q.params)
	if err != nil {
		return sourced[T]{}, err
	}
	v, data, err := roundTrip(v)
	if err != nil {
		return sourced[T]{}, err
	}
	return sourced[T]{value: c.kind.shape.normalize(v), payload: data}, nil
}

// FetchAsync starts the raw fetch on first call and returns the shared future.
func (q *CachedQuery[T, D]) FetchAsync(ctx context.Context) *future.Future[T] {
	src := q.sourceAsync(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result == nil {
		q.result = future.Then(ctx, src, func(ctx context.Context, s sourced[T]) (T, error) {
			if !s.fromCache && q.kind.cfg.WritesEnabled {
				if err := q.kind.write(ctx, &cache.CachedQueryResult{Key: q.key}, slotRaw, s.payload); err != nil {
					var zero T
					return zero, err
				}
			}
			return s.value, nil
		})
	}
	return q.result
}

// Fetch is FetchAsync followed by a wait.
func (q *CachedQuery[T, D]) Fetch(ctx context.Context) (T, error) {
	return q.FetchAsync(ctx).Get(ctx)
}

// FetchDictAsync returns the version projection. An absent raw result
// projects to the zero D without calling the converter. A version with no
// registered converter fails immediately.
func (q *CachedQuery[T, D]) FetchDictAsync(ctx context.Context, version convert.APIMajorVersion) *future.Future[D] {
	dictKey, err := q.DictCacheKey(version)
	if err != nil {
		return future.Failed[D](err)
	}

	f, _ := q.dicts.LoadOrCompute(version, func() *future.Future[D] {
		return future.Go(ctx, func(ctx context.Context) (D, error) {
			return q.loadDict(ctx, version, dictKey)
		})
	})
	return f
}

func (q *CachedQuery[T, D]) loadDict(ctx context.Context, version convert.APIMajorVersion, dictKey string) (D, error) {
	var zero D
	c := q.kind

	rec, err := c.store.Get(ctx, dictKey)
	if err != nil {
		return zero, err
	}
	if rec != nil && rec.ResultDict != nil {
		d, err := decodePayload[D](rec.ResultDict)
		if err == nil {
			c.metrics.recordHit(ctx, slotDict)
			c.logger.Debug("cache hit", zap.String("key", dictKey), zap.String("slot", slotDict))
			return c.kind.shape.normalizeD(d), nil
		}
		c.logger.Warn("discarding undecodable cached dict",
			zap.String("key", dictKey), zap.String("slot", slotDict), zap.Error(err))
	}

	c.metrics.recordMiss(ctx, slotDict)
	c.logger.Debug("cache miss", zap.String("key", dictKey), zap.String("slot", slotDict))

	s, err := q.sourceAsync(ctx).Result()
	if err != nil {
		return zero, err
	}
	d, err := c.kind.projectRaw(version, s.value)
	if err != nil {
		return zero, err
	}
	d, data, err := roundTrip(d)
	if err != nil {
		return zero, err
	}

	if c.cfg.WritesEnabled {
		if err := c.write(ctx, &cache.CachedQueryResult{Key: dictKey}, slotDict, data); err != nil {
			return zero, err
		}
	}
	return c.kind.shape.normalizeD(d), nil
}

// FetchDict is FetchDictAsync followed by a wait.
func (q *CachedQuery[T, D]) FetchDict(ctx context.Context, version convert.APIMajorVersion) (D, error) {
	return q.FetchDictAsync(ctx, version).Get(ctx)
}

// Prefetch implements Prefetcher.
func (q *CachedQuery[T, D]) Prefetch(ctx context.Context) future.Waiter {
	return q.FetchAsync(ctx)
}

// write stores an encoded payload in the record's slot.
func (c *CachedKind[T, D]) write(ctx context.Context, rec *cache.CachedQueryResult, slot string, data []byte) error {
	if slot == slotDict {
		rec.ResultDict = data
	} else {
		rec.Result = data
	}

	if err := c.store.Put(ctx, rec); err != nil {
		return err
	}
	c.metrics.recordWrite(ctx, slot)
	c.logger.Debug("cache write", zap.String("key", rec.Key), zap.String("slot", slot))
	return nil
}
