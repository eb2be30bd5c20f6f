package store

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// RepositoryStore adapts a go-repository-bun Repository to Store.
type RepositoryStore[M any] struct {
	repo       repository.Repository[M]
	idColumn   string
	isNotFound func(error) bool
	maxWorkers int
}

// RepositoryOption configures a RepositoryStore.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	idColumn   string
	isNotFound func(error) bool
	maxWorkers int
}

// WithIDColumn sets the primary key column used by DeleteMulti. Default "id".
func WithIDColumn(column string) RepositoryOption {
	return func(o *repositoryOptions) {
		o.idColumn = column
	}
}

// WithNotFound sets how a "no such record" error from GetByID is recognised.
// By default only errors wrapping sql.ErrNoRows are treated as absent.
func WithNotFound(fn func(error) bool) RepositoryOption {
	return func(o *repositoryOptions) {
		o.isNotFound = fn
	}
}

// WithMaxWorkers bounds the concurrent GetByID calls made by GetMulti.
func WithMaxWorkers(n int) RepositoryOption {
	return func(o *repositoryOptions) {
		o.maxWorkers = n
	}
}

// NewRepositoryStore wraps repo.
func NewRepositoryStore[M any](repo repository.Repository[M], opts ...RepositoryOption) *RepositoryStore[M] {
	o := repositoryOptions{
		idColumn: "id",
		isNotFound: func(err error) bool {
			return errors.Is(err, sql.ErrNoRows)
		},
		maxWorkers: 8,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &RepositoryStore[M]{
		repo:       repo,
		idColumn:   o.idColumn,
		isNotFound: o.isNotFound,
		maxWorkers: o.maxWorkers,
	}
}

func (s *RepositoryStore[M]) Get(ctx context.Context, id string) (*M, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *RepositoryStore[M]) Query(ctx context.Context, criteria ...Criteria) ([]M, error) {
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []M{}
	}
	return records, nil
}

// GetMulti fans out to GetByID. The first error cancels the remaining lookups.
func (s *RepositoryStore[M]) GetMulti(ctx context.Context, ids []string) ([]*M, error) {
	out := make([]*M, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxWorkers > 0 {
		g.SetLimit(s.maxWorkers)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			m, err := s.Get(gctx, id)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RepositoryStore[M]) PutMulti(ctx context.Context, models []M) error {
	if len(models) == 0 {
		return nil
	}
	_, err := s.repo.UpsertMany(ctx, models)
	return err
}

func (s *RepositoryStore[M]) DeleteMulti(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.DeleteWhere(ctx, func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("? IN (?)", bun.Ident(s.idColumn), bun.In(ids))
	})
}
