package query

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/goliatone/go-query-cache"

const (
	slotRaw  = "raw"
	slotDict = "dict"
)

// Stats is a point-in-time snapshot of a CachedKind's counters.
type Stats struct {
	RawHits       int64
	RawMisses     int64
	DictHits      int64
	DictMisses    int64
	Writes        int64
	Invalidations int64
}

type cacheMetrics struct {
	rawHits       atomic.Int64
	rawMisses     atomic.Int64
	dictHits      atomic.Int64
	dictMisses    atomic.Int64
	writes        atomic.Int64
	invalidations atomic.Int64

	kind attribute.KeyValue

	otelHits          metric.Int64Counter
	otelMisses        metric.Int64Counter
	otelWrites        metric.Int64Counter
	otelInvalidations metric.Int64Counter
}

func newCacheMetrics(mp metric.MeterProvider, kind string) *cacheMetrics {
	m := &cacheMetrics{kind: attribute.String("kind", kind)}
	if mp == nil {
		return m
	}

	meter := mp.Meter(meterName)
	m.otelHits, _ = meter.Int64Counter("querycache.hits",
		metric.WithDescription("Number of cached query slot hits"))
	m.otelMisses, _ = meter.Int64Counter("querycache.misses",
		metric.WithDescription("Number of cached query slot misses"))
	m.otelWrites, _ = meter.Int64Counter("querycache.writes",
		metric.WithDescription("Number of cached query slot writes"))
	m.otelInvalidations, _ = meter.Int64Counter("querycache.invalidations",
		metric.WithDescription("Number of cache keys passed to DeleteCacheMulti"))
	return m
}

func (m *cacheMetrics) attrs(slot string) metric.AddOption {
	return metric.WithAttributes(m.kind, attribute.String("slot", slot))
}

func (m *cacheMetrics) recordHit(ctx context.Context, slot string) {
	if slot == slotDict {
		m.dictHits.Add(1)
	} else {
		m.rawHits.Add(1)
	}
	if m.otelHits != nil {
		m.otelHits.Add(ctx, 1, m.attrs(slot))
	}
}

func (m *cacheMetrics) recordMiss(ctx context.Context, slot string) {
	if slot == slotDict {
		m.dictMisses.Add(1)
	} else {
		m.rawMisses.Add(1)
	}
	if m.otelMisses != nil {
		m.otelMisses.Add(ctx, 1, m.attrs(slot))
	}
}

func (m *cacheMetrics) recordWrite(ctx context.Context, slot string) {
	m.writes.Add(1)
	if m.otelWrites != nil {
		m.otelWrites.Add(ctx, 1, m.attrs(slot))
	}
}

func (m *cacheMetrics) recordInvalidation(ctx context.Context, count int64) {
	m.invalidations.Add(count)
	if m.otelInvalidations != nil {
		m.otelInvalidations.Add(ctx, count, metric.WithAttributes(m.kind))
	}
}

func (m *cacheMetrics) snapshot() Stats {
	return Stats{
		RawHits:       m.rawHits.Load(),
		RawMisses:     m.rawMisses.Load(),
		DictHits:      m.dictHits.Load(),
		DictMisses:    m.dictMisses.Load(),
		Writes:        m.writes.Load(),
		Invalidations: m.invalidations.Load(),
	}
}
