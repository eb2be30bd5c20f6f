package query

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownParam is returned when a query reads a param it was not given.
	ErrUnknownParam = errors.New("query: unknown param")
	// ErrParamType is returned when a bound param has an unexpected type.
	ErrParamType = errors.New("query: param has wrong type")
)

// Params are the named arguments bound to a query instance. Instances keep a
// private copy, so mutating the map after construction has no effect.
type Params map[string]any

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the bound param names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Param reads a typed param.
func Param[V any](p Params, name string) (V, error) {
	var zero V
	raw, ok := p[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T, want %T", ErrParamType, name, raw, zero)
	}
	return v, nil
}
