// Package convert maps API major versions to pure model-to-dict converters.
package convert

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// APIMajorVersion identifies a public API generation.
type APIMajorVersion int

const (
	APIv3 APIMajorVersion = 3
)

func (v APIMajorVersion) String() string {
	return strconv.Itoa(int(v))
}

var (
	// ErrUnsupportedVersion is returned when no converter is registered for a version.
	ErrUnsupportedVersion = errors.New("convert: unsupported API version")
	// ErrLengthMismatch is returned when a converter drops or adds elements.
	ErrLengthMismatch = errors.New("convert: converter must preserve length")
)

// ListFunc converts an ordered list of models into dicts of the same length and order.
type ListFunc[M, D any] func(models []M) []D

// Map lifts a single-model converter into a ListFunc.
func Map[M, D any](fn func(M) D) ListFunc[M, D] {
	return func(models []M) []D {
		out := make([]D, len(models))
		for i, m := range models {
			out[i] = fn(m)
		}
		return out
	}
}

type entry[M, D any] struct {
	fn         ListFunc[M, D]
	subversion int
}

// Registry holds the converters for one model type. It is built at startup
// and passed by reference to the query kinds that project that model.
type Registry[M, D any] struct {
	name       string
	converters map[APIMajorVersion]entry[M, D]
}

// NewRegistry creates an empty registry. name is used in error messages.
func NewRegistry[M, D any](name string) *Registry[M, D] {
	return &Registry[M, D]{
		name:       name,
		converters: make(map[APIMajorVersion]entry[M, D]),
	}
}

// Register binds fn to version. The subversion is folded into dict cache keys,
// so bump it whenever fn's output changes shape.
// Register panics on a nil converter or a duplicate version.
func (r *Registry[M, D]) Register(version APIMajorVersion, subversion int, fn ListFunc[M, D]) *Registry[M, D] {
	if fn == nil {
		panic(fmt.Sprintf("convert: nil converter for %s v%s", r.name, version))
	}
	if _, exists := r.converters[version]; exists {
		panic(fmt.Sprintf("convert: duplicate converter for %s v%s", r.name, version))
	}
	r.converters[version] = entry[M, D]{fn: fn, subversion: subversion}
	return r
}

// Name returns the registry name.
func (r *Registry[M, D]) Name() string {
	return r.name
}

// Versions lists the registered versions in ascending order.
func (r *Registry[M, D]) Versions() []APIMajorVersion {
	versions := make([]APIMajorVersion, 0, len(r.converters))
	for v := range r.converters {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}

// Subversion returns the converter subversion registered for version.
func (r *Registry[M, D]) Subversion(version APIMajorVersion) (int, error) {
	e, ok := r.converters[version]
	if !ok {
		return 0, r.unsupported(version)
	}
	return e.subversion, nil
}

// ConvertList projects models. The result is never nil.
func (r *Registry[M, D]) ConvertList(version APIMajorVersion, models []M) ([]D, error) {
	e, ok := r.converters[version]
	if !ok {
		return nil, r.unsupported(version)
	}

	out := e.fn(models)
	if len(out) != len(models) {
		return nil, fmt.Errorf("%w: %s v%s returned %d dicts for %d models",
			ErrLengthMismatch, r.name, version, len(out), len(models))
	}
	if out == nil {
		out = []D{}
	}
	return out, nil
}

// ConvertOne projects a single model. A nil model yields a nil dict and the
// converter is not called.
func (r *Registry[M, D]) ConvertOne(version APIMajorVersion, model *M) (*D, error) {
	if _, ok := r.converters[version]; !ok {
		return nil, r.unsupported(version)
	}
	if model == nil {
		return nil, nil
	}

	out, err := r.ConvertList(version, []M{*model})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *Registry[M, D]) unsupported(version APIMajorVersion) error {
	return fmt.Errorf("%w: %s has no converter for v%s", ErrUnsupportedVersion, r.name, version)
}
