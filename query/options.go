package query

import (
	"github.com/goliatone/go-query-cache/cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Option configures a Kind or CachedKind.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	meter      metric.MeterProvider
	serializer cache.KeySerializer
}

func defaultOptions() options {
	return options{
		logger:     zap.NewNop(),
		meter:      otel.GetMeterProvider(),
		serializer: cache.NewDefaultKeySerializer(),
	}
}

func (o options) apply(opts []Option) options {
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// WithMeterProvider sets where cache counters are reported.
// Defaults to the global otel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meter = mp
		}
	}
}

// WithKeySerializer overrides how param values are rendered into cache keys.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}
