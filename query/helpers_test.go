package query

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/convert"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/store"
	"github.com/uptrace/bun"
)

type DummyModel struct {
	bun.BaseModel `bun:"table:dummy_models" msgpack:"-"`

	ID      string `bun:"id,pk" msgpack:"id"`
	IntProp int    `bun:"int_prop" msgpack:"int_prop"`
}

type DummyDict struct {
	IntVal int `msgpack:"int_val"`
}

func converterV3(m DummyModel) DummyDict {
	return DummyDict{IntVal: m.IntProp}
}

// env wires a sqlite store, an in-process cache and counters around both.
type env struct {
	db         *bun.DB
	models     *countingStore
	cache      cache.CacheStore
	registry   *convert.Registry[DummyModel, DummyDict]
	converts   atomic.Int64
	pointKind  *Kind[*DummyModel, *DummyDict]
	rangeKind  *Kind[[]DummyModel, []DummyDict]
	cachedKind *CachedKind[[]DummyModel, []DummyDict]
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	db, err := store.OpenDB(store.DriverSQLite, testsupport.MemoryDSN(t))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBunStore(db, "id", func(m *DummyModel) string { return m.ID })
	if err := bs.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	cs, err := cache.NewCacheStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCacheStore() error = %v", err)
	}

	e := &env{db: db, models: &countingStore{Store: bs}, cache: cs}
	e.registry = convert.NewRegistry[DummyModel, DummyDict]("DummyModel").
		Register(convert.APIv3, 0, convert.Map(func(m DummyModel) DummyDict {
			e.converts.Add(1)
			return converterV3(m)
		}))

	e.pointKind = NewPointKind("DummyModelPointQuery", e.registry, e.getByKey)
	e.rangeKind = NewListKind("DummyModelRangeQuery", e.registry, e.queryRange)

	cachedRange := NewListKind("CachedDummyModelRangeQuery", e.registry, e.queryRange)
	e.cachedKind, err = NewCachedKind(cachedRange, cs, CacheConfig{
		KeyFormat:     "test_query_{min}_{max}",
		CacheVersion:  1,
		WritesEnabled: true,
	})
	if err != nil {
		t.Fatalf("NewCachedKind() error = %v", err)
	}
	return e
}

func (e *env) getByKey(ctx context.Context, p Params) (*DummyModel, error) {
	id, err := Param[string](p, "model_key")
	if err != nil {
		return nil, err
	}
	return e.models.Get(ctx, id)
}

func (e *env) queryRange(ctx context.Context, p Params) ([]DummyModel, error) {
	lo, err := Param[int](p, "min")
	if err != nil {
		return nil, err
	}
	hi, err := Param[int](p, "max")
	if err != nil {
		return nil, err
	}
	return e.models.Query(ctx, store.Between("int_prop", lo, hi), store.OrderBy("int_prop ASC"))
}

// putRange stores entities "0".."n-1" with int_prop equal to their index.
func (e *env) putRange(t *testing.T, n int) []string {
	t.Helper()
	models := make([]DummyModel, n)
	ids := make([]string, n)
	for i := range models {
		ids[i] = fmt.Sprintf("%d", i)
		models[i] = DummyModel{ID: ids[i], IntProp: i}
	}
	if err := e.models.PutMulti(context.Background(), models); err != nil {
		t.Fatalf("PutMulti() error = %v", err)
	}
	return ids
}

func (e *env) cacheCount(t *testing.T) int {
	t.Helper()
	n, err := e.cache.(cache.Counter).Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

// countingStore counts reads that reach the backing store.
type countingStore struct {
	store.Store[DummyModel]
	gets    atomic.Int64
	queries atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, id string) (*DummyModel, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, id)
}

func (s *countingStore) Query(ctx context.Context, criteria ...store.Criteria) ([]DummyModel, error) {
	s.queries.Add(1)
	return s.Store.Query(ctx, criteria...)
}

func (s *countingStore) reads() int64 {
	return s.gets.Load() + s.queries.Load()
}

// failingCache fails every operation with err.
type failingCache struct {
	err error
}

func (f failingCache) Get(ctx context.Context, key string) (*cache.CachedQueryResult, error) {
	return nil, f.err
}

func (f failingCache) Put(ctx context.Context, record *cache.CachedQueryResult) error {
	return f.err
}

func (f failingCache) DeleteMulti(ctx context.Context, keys []string) error {
	return f.err
}

// writeFailingCache reads from an embedded store but rejects writes.
type writeFailingCache struct {
	cache.CacheStore
	err error
}

func (w writeFailingCache) Put(ctx context.Context, record *cache.CachedQueryResult) error {
	return w.err
}

var errBackend = errors.New("backend unavailable")
