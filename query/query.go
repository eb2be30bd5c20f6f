package query

import (
	"context"
	"sync"

	"github.com/goliatone/go-query-cache/convert"
	"github.com/goliatone/go-query-cache/future"
	"github.com/puzpuzpuz/xsync/v3"
)

// Prefetcher is implemented by every query instance. Prefetch starts the raw
// fetch, if it has not started yet, and returns something to wait on.
type Prefetcher interface {
	Prefetch(ctx context.Context) future.Waiter
}

// FetchAll starts every query's fetch, then waits for all of them. The first
// error is returned; results are read back from each query.
func FetchAll(ctx context.Context, queries ...Prefetcher) error {
	waiters := make([]future.Waiter, 0, len(queries))
	for _, q := range queries {
		if q == nil {
			continue
		}
		waiters = append(waiters, q.Prefetch(ctx))
	}
	return future.WaitAll(ctx, waiters...)
}

func newDictFutures[D any]() *xsync.MapOf[convert.APIMajorVersion, *future.Future[D]] {
	return xsync.NewMapOf[convert.APIMajorVersion, *future.Future[D]]()
}

// Query is one uncached query instance: a Kind plus bound params.
//
// The raw fetch runs at most once per instance; every Fetch and FetchDict
// call shares it, and a failure is remembered for the instance's lifetime.
type Query[T, D any] struct {
	kind   *Kind[T, D]
	params Params

	mu     sync.Mutex
	result *future.Future[T]
	dicts  *xsync.MapOf[convert.APIMajorVersion, *future.Future[D]]
}

var _ Prefetcher = (*Query[any, any])(nil)

// Kind returns the kind this query was created from.
func (q *Query[T, D]) Kind() *Kind[T, D] {
	return q.kind
}

// Params returns a copy of the bound params.
func (q *Query[T, D]) Params() Params {
	return q.params.clone()
}

// FetchAsync starts the fetch on first call and returns the shared future.
func (q *Query[T, D]) FetchAsync(ctx context.Context) *future.Future[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result == nil {
		q.result = future.Go(ctx, func(ctx context.Context) (T, error) {
			return q.kind.run(ctx, q.params)
		})
	}
	return q.result
}

// Fetch is FetchAsync followed by a wait.
func (q *Query[T, D]) Fetch(ctx context.Context) (T, error) {
	return q.FetchAsync(ctx).Get(ctx)
}

// FetchDictAsync projects the raw result for version. An absent raw result
// resolves to the zero D without calling the converter. A version with no
// registered converter fails immediately.
func (q *Query[T, D]) FetchDictAsync(ctx context.Context, version convert.APIMajorVersion) *future.Future[D] {
	if _, err := q.kind.checkVersion(version); err != nil {
		return future.Failed[D](err)
	}

	f, _ := q.dicts.LoadOrCompute(version, func() *future.Future[D] {
		return future.Then(ctx, q.FetchAsync(ctx), func(ctx context.Context, raw T) (D, error) {
			return q.kind.projectRaw(version, raw)
		})
	})
	return f
}

// FetchDict is FetchDictAsync followed by a wait.
func (q *Query[T, D]) FetchDict(ctx context.Context, version convert.APIMajorVersion) (D, error) {
	return q.FetchDictAsync(ctx, version).Get(ctx)
}

// Prefetch implements Prefetcher.
func (q *Query[T, D]) Prefetch(ctx context.Context) future.Waiter {
	return q.FetchAsync(ctx)
}
