// Package cache provides the storage contract and key derivation for cached queries.
//
// # Overview
//
// This package exports the interfaces cached queries depend on and their default implementations:
//
//   - CacheStore: get / put / delete-multi over CachedQueryResult records
//   - KeySerializer: builds stable key segments from names and values
//   - KeyTemplate: renders keys such as "team_list_{page}" from bound params
//
// Records have two independent slots. Result holds a raw query result and
// ResultDict holds one API projection of it; a cached query writes exactly one
// slot per key. Records never expire: they are overwritten by later writes and
// removed only by DeleteMulti (or by eviction in the bounded in-process store).
//
// # Backends
//
//	mem, _ := cache.NewCacheStore(cache.DefaultConfig())      // sturdyc, in-process
//	rds, _ := cache.NewRedisCacheStore(pool, "tba:")         // redigo pool
//	sqls, _ := cache.NewSQLCacheStore(db)                    // bun, cached_query_results table
//
// Payloads are opaque bytes; the query package decides how results are encoded.
//
// # Key Templates
//
// Placeholders are written {name}; "{{" and "}}" produce literal braces.
// Values are rendered by the KeySerializer and then percent-escaped so that
// only [A-Za-z0-9%] reaches the key. Two placeholders must be separated by a
// literal that contains a non-alphanumeric byte, which keeps rendering
// injective:
//
//	tmpl := cache.MustParseKeyTemplate("test_query_{min}_{max}")
//	key, _ := tmpl.Render(cache.NewDefaultKeySerializer(), map[string]any{"min": 0, "max": 2})
//	// key == "test_query_0_2"
//
// Kinds without a template use DefaultKey, and any key longer than
// MaxKeyLength is shortened by FoldKey.
//
// # Param Values
//
// The default serializer renders scalars as their literal text, so 254 and
// a JSON-decoded 254.0 both give "254". Times render in UTC as RFC 3339,
// byte slices as 0x-prefixed hex, slices as "[a,b]" and maps as sorted
// "{k=v,...}" with every element, key and value escaped first. A nil param
// renders as "%nil", which no escaped value can produce. Values of the same
// type get distinct keys; 1 and "1" do not. Structs fall back to JSON.
// Funcs and channels render by address, which is only stable within one
// process, so they must not be bound as params when a shared backend is used.
package cache
