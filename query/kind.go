package query

import (
	"context"

	"github.com/goliatone/go-query-cache/convert"
	"go.uber.org/zap"
)

// ExecFunc runs a query against the backing store using the bound params.
type ExecFunc[T any] func(ctx context.Context, p Params) (T, error)

// shape captures what differs between single-entity and collection kinds.
type shape[T, D any] struct {
	// absent reports whether a raw result is "no entity".
	absent func(T) bool
	// normalize fixes up raw results, e.g. nil slices to empty ones.
	normalize func(T) T
	// project converts a present raw result for one API version.
	project    func(v convert.APIMajorVersion, raw T) (D, error)
	normalizeD func(D) D
	subversion func(v convert.APIMajorVersion) (int, error)
	versions   func() []convert.APIMajorVersion
}

// Kind is one named, parametrized fetch. T is the raw result type and D the
// projected dict type: *M and *DM for single-entity kinds, []M and []DM for
// collection kinds. A Kind is set up once and shared by every query instance.
type Kind[T, D any] struct {
	name   string
	exec   ExecFunc[T]
	shape  shape[T, D]
	opts   options
	logger *zap.Logger
}

// NewPointKind creates a kind that resolves to a single entity or nil.
// A nil registry makes every dict fetch fail with convert.ErrUnsupportedVersion.
func NewPointKind[M, DM any](name string, registry *convert.Registry[M, DM], exec ExecFunc[*M], opts ...Option) *Kind[*M, *DM] {
	if registry == nil {
		registry = convert.NewRegistry[M, DM](name)
	}
	return newKind(name, exec, shape[*M, *DM]{
		absent:     func(m *M) bool { return m == nil },
		normalize:  func(m *M) *M { return m },
		project:    registry.ConvertOne,
		normalizeD: func(d *DM) *DM { return d },
		subversion: registry.Subversion,
		versions:   registry.Versions,
	}, opts)
}

// NewListKind creates a kind that resolves to an ordered, possibly empty
// collection. Collection results are never absent.
func NewListKind[M, DM any](name string, registry *convert.Registry[M, DM], exec ExecFunc[[]M], opts ...Option) *Kind[[]M, []DM] {
	if registry == nil {
		registry = convert.NewRegistry[M, DM](name)
	}
	return newKind(name, exec, shape[[]M, []DM]{
		absent: func([]M) bool { return false },
		normalize: func(ms []M) []M {
			if ms == nil {
				return []M{}
			}
			return ms
		},
		project: registry.ConvertList,
		normalizeD: func(ds []DM) []DM {
			if ds == nil {
				return []DM{}
			}
			return ds
		},
		subversion: registry.Subversion,
		versions:   registry.Versions,
	}, opts)
}

func newKind[T, D any](name string, exec ExecFunc[T], sh shape[T, D], opts []Option) *Kind[T, D] {
	if exec == nil {
		panic("query: nil ExecFunc for kind " + name)
	}
	o := defaultOptions().apply(opts)
	return &Kind[T, D]{
		name:   name,
		exec:   exec,
		shape:  sh,
		opts:   o,
		logger: o.logger.With(zap.String("kind", name)),
	}
}

// Name returns the kind name.
func (k *Kind[T, D]) Name() string {
	return k.name
}

// Versions lists the API versions this kind can project to.
func (k *Kind[T, D]) Versions() []convert.APIMajorVersion {
	return k.shape.versions()
}

// New binds params to a fresh query instance.
func (k *Kind[T, D]) New(params Params) *Query[T, D] {
	return &Query[T, D]{
		kind:   k,
		params: params.clone(),
		dicts:  newDictFutures[D](),
	}
}

// run executes the fetch and normalizes its result. Store errors are
// returned unmodified.
func (k *Kind[T, D]) run(ctx context.Context, params Params) (T, error) {
	v, err := k.exec(ctx, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return k.shape.normalize(v), nil
}

// projectRaw converts raw for version. Absent results project to the zero D
// without calling the converter.
func (k *Kind[T, D]) projectRaw(version convert.APIMajorVersion, raw T) (D, error) {
	if k.shape.absent(raw) {
		var zero D
		return zero, nil
	}
	d, err := k.shape.project(version, raw)
	if err != nil {
		var zero D
		return zero, err
	}
	return k.shape.normalizeD(d), nil
}

// checkVersion fails fast for versions without a registered converter.
func (k *Kind[T, D]) checkVersion(version convert.APIMajorVersion) (int, error) {
	return k.shape.subversion(version)
}
