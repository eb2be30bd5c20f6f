// Package store defines the datastore contract queries execute against, plus
// bun-backed and go-repository-bun-backed implementations.
package store

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-query-cache/future"
	"github.com/uptrace/bun"
)

// Criteria narrows a select. It is the go-repository-bun criteria type so the
// same helpers work with both store implementations.
type Criteria = repository.SelectCriteria

// Store is a keyed entity store.
//
// Get returns nil when id does not exist. Query returns an ordered, possibly
// empty slice, never nil. GetMulti returns one slot per id, nil where absent.
// Deleting ids that do not exist is not an error.
type Store[M any] interface {
	Get(ctx context.Context, id string) (*M, error)
	Query(ctx context.Context, criteria ...Criteria) ([]M, error)
	GetMulti(ctx context.Context, ids []string) ([]*M, error)
	PutMulti(ctx context.Context, models []M) error
	DeleteMulti(ctx context.Context, ids []string) error
}

// GetAsync starts s.Get on its own goroutine.
func GetAsync[M any](ctx context.Context, s Store[M], id string) *future.Future[*M] {
	return future.Go(ctx, func(ctx context.Context) (*M, error) {
		return s.Get(ctx, id)
	})
}

// QueryAsync starts s.Query on its own goroutine.
func QueryAsync[M any](ctx context.Context, s Store[M], criteria ...Criteria) *future.Future[[]M] {
	return future.Go(ctx, func(ctx context.Context) ([]M, error) {
		return s.Query(ctx, criteria...)
	})
}

// Between matches rows with min <= column <= max.
func Between(column string, min, max any) Criteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? >= ?", bun.Ident(column), min).Where("? <= ?", bun.Ident(column), max)
	}
}

// Where matches rows whose column equals value.
func Where(column string, value any) Criteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}

// OrderBy sorts by the given expressions, e.g. "int_prop ASC".
func OrderBy(order ...string) Criteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order(order...)
	}
}

// Limit caps the number of returned rows.
func Limit(n int) Criteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(n)
	}
}

// NotFoundError is returned by helpers that require an entity to exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: %s %q not found", e.Kind, e.ID)
}

// MustGet is Get that turns an absent entity into a *NotFoundError.
func MustGet[M any](ctx context.Context, s Store[M], kind, id string) (*M, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	return m, nil
}
