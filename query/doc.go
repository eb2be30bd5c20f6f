// Package query runs parametrized fetches against a backing store, optionally
// behind a cache.
//
// A Kind names one fetch and the function that executes it. Binding params to
// a Kind gives a Query; each Query starts its fetch at most once and every
// caller of that instance shares the result, errors included:
//
//	teams := query.NewListKind("EventTeamsQuery", teamDicts, func(ctx context.Context, p query.Params) ([]Team, error) {
//		key, err := query.Param[string](p, "event_key")
//		if err != nil {
//			return nil, err
//		}
//		return teamStore.Query(ctx, store.Where("event_key", key))
//	})
//
//	q := teams.New(query.Params{"event_key": "2016nytr"})
//	list, err := q.Fetch(ctx)
//	dicts, err := q.FetchDict(ctx, convert.APIv3)
//
// CachedKind adds a cache.CacheStore. The raw result is stored under the key
// rendered from KeyFormat and each API projection under its own dict key, so
// a dict fetch never rewrites the raw slot. Cached values stay until they are
// removed with DeleteCacheMulti; bump CacheVersion or QueryVersion to orphan
// old records instead.
//
//	cached, err := query.NewCachedKind(teams, cacheStore, query.CacheConfig{
//		KeyFormat:     "event_teams_{event_key}",
//		CacheVersion:  1,
//		WritesEnabled: true,
//	})
//
// FetchAll starts several queries and waits for them together.
package query
